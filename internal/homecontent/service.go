package homecontent

import (
	"context"

	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/internal/resolver"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ServiceParams groups dependencies for the home content service.
type ServiceParams struct {
	Repo      *Repository
	Resolver  *resolver.Resolver
	Cache     Cache
	Publisher events.Publisher
	Logger    *logger.Logger
}

// Service manages the three curated storefront lists.
type Service interface {
	// GetHomeContent returns every entry, unresolved ones flagged.
	GetHomeContent(ctx context.Context) (*HomeContentDTO, error)
	// GetPublicHomeContent returns only resolved entries.
	GetPublicHomeContent(ctx context.Context) (*HomeContentDTO, error)
	GetRaw(ctx context.Context) (*RawHomeContentDTO, error)
	SetList(ctx context.Context, listName string, refs []resolver.Ref) (*RawHomeContentDTO, error)
	ClearList(ctx context.Context, listName string) (*RawHomeContentDTO, error)
}

type service struct {
	repo      *Repository
	resolver  *resolver.Resolver
	cache     Cache
	publisher events.Publisher
	logg      *logger.Logger
}

// NewService builds a home content service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "home content repo is required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product resolver is required")
	}
	svc := &service{
		repo:      params.Repo,
		resolver:  params.Resolver,
		cache:     params.Cache,
		publisher: params.Publisher,
		logg:      params.Logger,
	}
	if svc.cache == nil {
		svc.cache = noopCache{}
	}
	if svc.publisher == nil {
		svc.publisher = events.Noop{}
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	return svc, nil
}

func (s *service) GetHomeContent(ctx context.Context) (*HomeContentDTO, error) {
	cached, generation, ok := s.cache.Get(ctx)
	if ok {
		return cached, nil
	}

	raw, err := s.GetRaw(ctx)
	if err != nil {
		return nil, err
	}

	groups, stats := s.resolver.ResolveGroups(ctx, [][]resolver.Ref{raw.NewArrival, raw.HotItems, raw.TrandingItems})
	content := &HomeContentDTO{
		NewArrival:    groups[0],
		HotItems:      groups[1],
		TrandingItems: groups[2],
		UpdatedAt:     raw.UpdatedAt,
	}
	if stats.Degraded() {
		s.logg.Warn(s.logg.WithField(ctx, "failed_refs", stats.Failed), "home content served without caching after catalog lookup failure")
		return content, nil
	}
	s.cache.Set(ctx, generation, content)
	return content, nil
}

func (s *service) GetPublicHomeContent(ctx context.Context) (*HomeContentDTO, error) {
	content, err := s.GetHomeContent(ctx)
	if err != nil {
		return nil, err
	}
	public := content.PublicView()
	return &public, nil
}

// GetRaw returns the stored references. A missing row reads as three empty lists.
func (s *service) GetRaw(ctx context.Context) (*RawHomeContentDTO, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			empty := emptyRaw()
			return &empty, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load home content")
	}
	raw := newRawDTO(row)
	return &raw, nil
}

// SetList replaces listName wholesale. Order is stored exactly as given.
func (s *service) SetList(ctx context.Context, listName string, refs []resolver.Ref) (*RawHomeContentDTO, error) {
	list, err := enums.ParseCuratedList(listName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "unknown list name").
			WithDetails(map[string]any{"listName": listName, "allowed": enums.CuratedLists()})
	}

	for i, ref := range refs {
		if !ref.HasKey() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "each item requires productId or product_id").
				WithDetails(map[string]any{"index": i})
		}
	}

	if err := s.repo.ReplaceList(ctx, list, fromRefs(refs)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace home content list")
	}
	s.cache.Invalidate(ctx)

	logCtx := s.logg.WithFields(ctx, map[string]any{"list": list.String(), "items": len(refs)})
	s.logg.Info(logCtx, "home content list replaced")

	raw, err := s.GetRaw(ctx)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events.Event{
		Type:          enums.EventHomeContentListReplaced,
		AggregateType: enums.AggregateHomeContent,
		AggregateID:   list.String(),
		Data: map[string]any{
			"listName": list.String(),
			"items":    raw.List(list),
		},
	})
	return raw, nil
}

func (s *service) ClearList(ctx context.Context, listName string) (*RawHomeContentDTO, error) {
	return s.SetList(ctx, listName, []resolver.Ref{})
}
