package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/lockx"
	"github.com/dmitrijs2005/gophdocs/internal/logging"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/dmitrijs2005/gophdocs/internal/server/storage"
)

// UnresolvedKeyPolicy decides what a save-back does with a key the
// registry does not know.
type UnresolvedKeyPolicy string

const (
	// PolicyFallback writes the content under <key>.<filetype>.
	PolicyFallback UnresolvedKeyPolicy = "fallback"
	// PolicyReject fails the callback without writing anything.
	PolicyReject UnresolvedKeyPolicy = "reject"
)

// ParseUnresolvedKeyPolicy accepts "fallback", "reject" or "" (fallback).
func ParseUnresolvedKeyPolicy(s string) (UnresolvedKeyPolicy, error) {
	switch UnresolvedKeyPolicy(s) {
	case "", PolicyFallback:
		return PolicyFallback, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("%w: unknown unresolved key policy %q", common.ErrConfiguration, s)
	}
}

// Fetcher retrieves the finished document from the location the document
// server reports.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// CallbackResult describes what a processed callback did.
type CallbackResult struct {
	Outcome    models.CallbackOutcome
	Filename   string
	Generation int64
	// Fallback is set when the key did not resolve and the content was
	// written under a key-derived name.
	Fallback bool
}

// CallbackService is the Save-Back Callback Handler.
type CallbackService struct {
	ledger   *Ledger
	registry *Registry
	storage  storage.Storage
	fetcher  Fetcher
	locks    *lockx.KeyedMutex
	policy   UnresolvedKeyPolicy
	log      logging.Logger
}

func NewCallbackService(ledger *Ledger, registry *Registry, st storage.Storage, fetcher Fetcher, locks *lockx.KeyedMutex, policy UnresolvedKeyPolicy, log logging.Logger) *CallbackService {
	if policy == "" {
		policy = PolicyFallback
	}
	return &CallbackService{
		ledger:   ledger,
		registry: registry,
		storage:  st,
		fetcher:  fetcher,
		locks:    locks,
		policy:   policy,
		log:      log.With("module", "callback"),
	}
}

// Handle processes one callback. Not-ready callbacks return without side
// effects; malformed ones return common.ErrMalformedCallback before anything
// is read or written.
func (s *CallbackService) Handle(ctx context.Context, cb *models.Callback) (CallbackResult, error) {
	outcome := cb.Outcome()
	res := CallbackResult{Outcome: outcome}

	switch outcome {
	case models.OutcomeMalformed:
		return res, common.ErrMalformedCallback
	case models.OutcomeNotReady:
		s.log.Debug(ctx, "callback acknowledged", "key", cb.Key, "status", cb.Status.String())
		return res, nil
	}

	target, fallback, unlock, err := s.lockTarget(ctx, cb)
	if err != nil {
		return res, err
	}
	defer unlock()
	res.Filename, res.Fallback = target, fallback
	if fallback {
		s.log.Warn(ctx, "unknown session key, saving under fallback name", "key", cb.Key, "file", target)
	}

	data, err := s.fetcher.Fetch(ctx, cb.URL)
	if err != nil {
		return res, fmt.Errorf("%w: %w", common.ErrSaveFetch, err)
	}

	if err := s.storage.Write(ctx, target, data); err != nil {
		return res, fmt.Errorf("%w: write %s: %w", common.ErrPersistence, target, err)
	}

	gen, err := s.ledger.Bump(ctx, target)
	if err != nil {
		return res, err
	}
	res.Generation = gen

	s.log.Info(ctx, "document saved", "key", cb.Key, "file", target, "bytes", len(data), "generation", gen, "fallback", fallback)
	return res, nil
}

// lockTarget resolves the callback's filename and locks it. The mapping is
// re-checked under the lock so a delete that ran in between is observed.
func (s *CallbackService) lockTarget(ctx context.Context, cb *models.Callback) (string, bool, func(), error) {
	for {
		target, _, err := s.target(ctx, cb)
		if err != nil {
			return "", false, nil, err
		}

		unlock := s.locks.Lock(target)
		again, againFallback, err := s.target(ctx, cb)
		if err != nil {
			unlock()
			return "", false, nil, err
		}
		if again == target {
			return target, againFallback, unlock, nil
		}
		unlock()
	}
}

func (s *CallbackService) target(ctx context.Context, cb *models.Callback) (string, bool, error) {
	sk, err := s.registry.Resolve(ctx, cb.Key)
	if err == nil {
		return sk.Filename, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", false, err
	}

	if s.policy == PolicyReject {
		return "", false, fmt.Errorf("session key %s: %w", cb.Key, common.ErrorNotFound)
	}

	name, err := FallbackName(cb.Key, cb.FileType)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", common.ErrMalformedCallback, err)
	}
	return name, true, nil
}

// FallbackName is the filename used for content whose key did not resolve.
func FallbackName(key, fileType string) (string, error) {
	if fileType == "" {
		fileType = "docx"
	}
	name, err := storage.CleanName(key + "." + fileType)
	if err != nil {
		return storage.CleanName(key + ".docx")
	}
	return name, nil
}
