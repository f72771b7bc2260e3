package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/lockx"
	"github.com/dmitrijs2005/gophdocs/internal/logging"
	"github.com/dmitrijs2005/gophdocs/internal/server/auth"
	"github.com/dmitrijs2005/gophdocs/internal/server/doctype"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/dmitrijs2005/gophdocs/internal/server/storage"
)

const sniffBytes = 3072

// DescriptorOptions controls how session descriptors are signed and what
// they grant.
type DescriptorOptions struct {
	Secret []byte
	// RequireSigned rejects descriptor builds when Secret is empty. Turn it
	// off only for trusted internal deployments.
	RequireSigned     bool
	TokenTTL          time.Duration
	Permissions       models.Permissions
	User              auth.User
	Mode              string
	DocumentServerURL string
}

// DescriptorBuilder is the Session Descriptor Builder.
type DescriptorBuilder struct {
	ledger   *Ledger
	registry *Registry
	storage  storage.Storage
	locks    *lockx.KeyedMutex
	opts     DescriptorOptions
	log      logging.Logger
}

func NewDescriptorBuilder(ledger *Ledger, registry *Registry, st storage.Storage, locks *lockx.KeyedMutex, opts DescriptorOptions, log logging.Logger) *DescriptorBuilder {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Mode == "" {
		opts.Mode = "edit"
	}
	return &DescriptorBuilder{
		ledger:   ledger,
		registry: registry,
		storage:  st,
		locks:    locks,
		opts:     opts,
		log:      log.With("module", "descriptor"),
	}
}

// Build assembles and signs the session descriptor for filename and
// registers its key. URLs handed to the document server use internalBase
// when set, else publicBase.
func (b *DescriptorBuilder) Build(ctx context.Context, filename, publicBase, internalBase string) (*models.Descriptor, error) {
	if b.opts.RequireSigned && len(b.opts.Secret) == 0 {
		return nil, fmt.Errorf("%w: signed descriptors required but no secret configured", common.ErrConfiguration)
	}

	name, err := storage.CleanName(filename)
	if err != nil {
		return nil, err
	}

	base := NormalizeBaseURL(internalBase)
	if base == "" {
		base = NormalizeBaseURL(publicBase)
	}
	if base == "" {
		return nil, fmt.Errorf("%w: no base url", common.ErrConfiguration)
	}

	unlock := b.locks.Lock(name)
	defer unlock()

	// Checked under the lock so a concurrent delete cannot leave a key
	// registered for a missing document.
	var head []byte
	if doctype.Ext(name) == "" {
		if head, err = b.storage.ReadHead(ctx, name, sniffBytes); err != nil {
			return nil, err
		}
	} else if ok, err := b.storage.Exists(ctx, name); err != nil {
		return nil, err
	} else if !ok {
		return nil, common.ErrorNotFound
	}

	gen, err := b.ledger.Generation(ctx, name)
	if err != nil {
		return nil, err
	}

	docURL := DocumentURL(base, name, gen)
	key := DeriveKey(docURL, gen)

	if err := b.registry.Register(ctx, key, name, gen); err != nil {
		return nil, err
	}

	d := &models.Descriptor{
		DocumentType: doctype.Classify(name, head),
		Document: models.DocumentConfig{
			Title:       name,
			URL:         docURL,
			Key:         key,
			FileType:    doctype.FileType(name, head),
			Permissions: b.opts.Permissions,
		},
		EditorConfig: models.EditorConfig{
			CallbackURL: CallbackURL(base),
			Mode:        b.opts.Mode,
		},
		DocumentServerURL: b.opts.DocumentServerURL,
		Generation:        gen,
	}

	if len(b.opts.Secret) > 0 {
		token, err := auth.GenerateEditorToken(b.opts.User, d, b.opts.Secret, b.opts.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("sign descriptor: %w", err)
		}
		d.Token = token
	}

	b.log.Info(ctx, "descriptor built", "file", name, "generation", gen, "key", key)
	return d, nil
}
