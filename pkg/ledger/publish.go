package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// ContentHashPrefix tags hashes computed by PublishContent
const ContentHashPrefix = "sha256:"

func (s *service) PublishContent(ctx context.Context, req PublishContentRequest, caller Identity) (*ContentRegistration, error) {
	if caller.IsAnonymous() {
		return nil, &ContentError{ContentID: req.ID, Op: "publish", Err: ErrUnauthorized}
	}
	if s.blobStore == nil {
		return nil, &ContentError{ContentID: req.ID, Op: "publish", Err: ErrNoBlobStore}
	}

	// Upload and registration of one id must not interleave with another
	// publish of that id, or the record could hash bytes that were replaced.
	unlock := s.publishing.lock(req.ID)
	defer unlock()

	// Checked again under the write lock by RegisterContent; this only keeps
	// a rejected publish from replacing the existing bytes.
	if s.rejectDuplicateIDs {
		if _, err := s.GetContent(ctx, req.ID); err == nil {
			return nil, &ContentError{ContentID: req.ID, Op: "publish", Err: ErrDuplicateID}
		}
	}

	hasher := sha256.New()
	if err := s.blobStore.Upload(ctx, ObjectKey(req.ID), io.TeeReader(req.Body, hasher)); err != nil {
		return nil, &ContentError{ContentID: req.ID, Op: "publish", Err: fmt.Errorf("%w: %v", ErrUploadFailed, err)}
	}

	return s.RegisterContent(ctx, RegisterContentRequest{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		ContentHash: ContentHashPrefix + hex.EncodeToString(hasher.Sum(nil)),
		PriceE8s:    req.PriceE8s,
	}, caller)
}

func (s *service) DownloadContent(ctx context.Context, contentID string, caller Identity) (io.ReadCloser, error) {
	if err := s.authorizeDelivery(ctx, contentID, caller, "download"); err != nil {
		return nil, err
	}

	reader, err := s.blobStore.Download(ctx, ObjectKey(contentID))
	if err != nil {
		return nil, &ContentError{ContentID: contentID, Op: "download", Err: err}
	}
	return reader, nil
}

func (s *service) GetDownloadURL(ctx context.Context, contentID string, caller Identity) (string, error) {
	if err := s.authorizeDelivery(ctx, contentID, caller, "download_url"); err != nil {
		return "", err
	}

	url, err := s.blobStore.GetDownloadURL(ctx, ObjectKey(contentID), contentID)
	if err != nil {
		return "", &ContentError{ContentID: contentID, Op: "download_url", Err: err}
	}
	return url, nil
}

// authorizeDelivery admits the creator and any identity with a recorded
// purchase of the content.
func (s *service) authorizeDelivery(ctx context.Context, contentID string, caller Identity, op string) error {
	if s.blobStore == nil {
		return &ContentError{ContentID: contentID, Op: op, Err: ErrNoBlobStore}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok, err := s.repository.Contents().Get(ctx, contentID)
	if err != nil {
		return &ContentError{ContentID: contentID, Op: op, Err: err}
	}
	if !ok {
		return &ContentError{ContentID: contentID, Op: op, Err: ErrContentNotFound}
	}
	if caller.IsAnonymous() {
		return &ContentError{ContentID: contentID, Op: op, Err: ErrUnauthorized}
	}
	if content.Creator == caller {
		return nil
	}

	purchased, err := s.hasPurchasedLocked(ctx, caller, contentID)
	if err != nil {
		return &ContentError{ContentID: contentID, Op: op, Err: err}
	}
	if !purchased {
		return &ContentError{ContentID: contentID, Op: op, Err: ErrUnauthorized}
	}
	return nil
}

// keyedMutex hands out one mutex per key. Entries are dropped once no
// goroutine holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
