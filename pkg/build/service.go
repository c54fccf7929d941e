package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pcshop/configurator/pkg/catalog"
	"github.com/pcshop/configurator/pkg/compat"
)

// EvaluatorSource returns an evaluator over the current catalog and rules.
type EvaluatorSource interface {
	Load(ctx context.Context) (*compat.Evaluator, error)
}

// Result is a build together with its current compatibility report.
type Result struct {
	Build         *Build          `json:"build,omitempty"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Compatibility compat.Report   `json:"compatibility"`
}

// Service implements the build operations on top of the store, the product
// lookup and the rule evaluator.
type Service struct {
	store      *Store
	products   catalog.ProductLookup
	evaluators EvaluatorSource
	logger     *slog.Logger
}

// NewService creates a Service.
func NewService(store *Store, products catalog.ProductLookup, evaluators EvaluatorSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, products: products, evaluators: evaluators, logger: logger}
}

// Check evaluates a submission without saving it.
func (s *Service) Check(ctx context.Context, req SubmitRequest) (*Result, error) {
	ev, agg, err := s.assemble(ctx, req.Components)
	if err != nil {
		return nil, err
	}
	report, err := agg.CheckCompatibility(ev)
	if err != nil {
		return nil, err
	}
	return &Result{TotalPrice: agg.TotalPrice(), Compatibility: report}, nil
}

// Submit saves a new build for userID. All components are validated before
// anything is written and the build is stored in one transaction, so a
// failing component leaves nothing behind. Incompatible builds are saved;
// the report tells the caller what is wrong.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (*Result, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &catalog.ValidationError{Code: catalog.CodeInvalidValue, Field: "name", Message: "name is required"}
	}
	ev, agg, err := s.assemble(ctx, req.Components)
	if err != nil {
		return nil, err
	}
	report, err := agg.CheckCompatibility(ev)
	if err != nil {
		return nil, err
	}

	b := &Build{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: req.Description,
		TotalPrice:  agg.TotalPrice(),
	}
	for _, typeID := range agg.FilledTypes() {
		slot, _ := agg.Slot(typeID)
		b.Components = append(b.Components, BuildComponent{
			ComponentTypeID: typeID,
			ProductID:       slot.Product.ID,
			SelectedOptions: slot.Options,
		})
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("build saved", "build", b.ID, "user", userID, "components", len(b.Components), "valid", report.IsValid)
	return &Result{Build: b, TotalPrice: b.TotalPrice, Compatibility: report}, nil
}

// Get returns a build owned by userID with a fresh compatibility report.
func (s *Service) Get(ctx context.Context, userID, buildID string) (*Result, error) {
	b, err := s.owned(ctx, userID, buildID)
	if err != nil {
		return nil, err
	}
	ev, agg, err := s.load(ctx, b)
	if err != nil {
		return nil, err
	}
	report, err := agg.CheckCompatibility(ev)
	if err != nil {
		return nil, err
	}
	return &Result{Build: b, TotalPrice: agg.TotalPrice(), Compatibility: report}, nil
}

// List returns the builds owned by userID.
func (s *Service) List(ctx context.Context, userID string) ([]Build, error) {
	return s.store.ListByUser(ctx, userID)
}

// Delete removes a build owned by userID together with its components.
func (s *Service) Delete(ctx context.Context, userID, buildID string) error {
	if _, err := s.owned(ctx, userID, buildID); err != nil {
		return err
	}
	deleted, err := s.store.Delete(ctx, buildID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrBuildNotFound
	}
	return nil
}

// CheckCompatibility evaluates a stored build.
func (s *Service) CheckCompatibility(ctx context.Context, userID, buildID string) (compat.Report, error) {
	res, err := s.Get(ctx, userID, buildID)
	if err != nil {
		return compat.Report{}, err
	}
	return res.Compatibility, nil
}

// AddComponent fills an empty slot of a stored build.
func (s *Service) AddComponent(ctx context.Context, userID, buildID string, in ComponentInput) (*Result, error) {
	return s.mutate(ctx, userID, buildID, func(agg *Aggregate) (func() error, error) {
		p, err := s.product(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if err := agg.AddComponent(in.ComponentTypeID, p, in.Options); err != nil {
			return nil, err
		}
		return func() error {
			c := &BuildComponent{BuildID: buildID, ComponentTypeID: in.ComponentTypeID, ProductID: p.ID, SelectedOptions: in.Options}
			err := s.store.InsertComponent(ctx, c, agg.TotalPrice())
			// Another request filled the slot after the build was loaded.
			var dup *DuplicateSlotError
			if errors.As(err, &dup) {
				if ct, ok := agg.registry.Type(in.ComponentTypeID); ok {
					dup.TypeName = ct.Name
				}
			}
			return err
		}, nil
	})
}

// ReplaceComponent puts a product into a slot of a stored build, replacing
// the current one if the slot is filled.
func (s *Service) ReplaceComponent(ctx context.Context, userID, buildID string, in ComponentInput) (*Result, error) {
	return s.mutate(ctx, userID, buildID, func(agg *Aggregate) (func() error, error) {
		p, err := s.product(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if err := agg.ReplaceComponent(in.ComponentTypeID, p, in.Options); err != nil {
			return nil, err
		}
		return func() error {
			c := &BuildComponent{BuildID: buildID, ComponentTypeID: in.ComponentTypeID, ProductID: p.ID, SelectedOptions: in.Options}
			return s.store.UpdateComponent(ctx, c, agg.TotalPrice())
		}, nil
	})
}

// RemoveComponent empties a slot of a stored build. Removing from an empty
// slot changes nothing.
func (s *Service) RemoveComponent(ctx context.Context, userID, buildID string, typeID uint) (*Result, error) {
	return s.mutate(ctx, userID, buildID, func(agg *Aggregate) (func() error, error) {
		if !agg.RemoveComponent(typeID) {
			return nil, nil
		}
		return func() error {
			return s.store.DeleteComponent(ctx, buildID, typeID, agg.TotalPrice())
		}, nil
	})
}

// mutate loads the build, applies change to its aggregate and runs the
// returned persist step, then reloads the build for the response.
func (s *Service) mutate(ctx context.Context, userID, buildID string, change func(*Aggregate) (func() error, error)) (*Result, error) {
	b, err := s.owned(ctx, userID, buildID)
	if err != nil {
		return nil, err
	}
	ev, agg, err := s.load(ctx, b)
	if err != nil {
		return nil, err
	}
	persist, err := change(agg)
	if err != nil {
		return nil, err
	}
	if persist != nil {
		if err := persist(); err != nil {
			return nil, err
		}
		if b, err = s.store.Get(ctx, buildID); err != nil {
			return nil, err
		}
		if b == nil {
			return nil, ErrBuildNotFound
		}
	}
	report, err := agg.CheckCompatibility(ev)
	if err != nil {
		return nil, err
	}
	return &Result{Build: b, TotalPrice: agg.TotalPrice(), Compatibility: report}, nil
}

func (s *Service) owned(ctx context.Context, userID, buildID string) (*Build, error) {
	b, err := s.store.Get(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if b == nil || b.UserID != userID {
		return nil, ErrBuildNotFound
	}
	return b, nil
}

func (s *Service) product(ctx context.Context, id uint) (*catalog.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup product %d: %w", id, err)
	}
	if p == nil {
		return nil, catalog.UnknownReference("product", id)
	}
	return p, nil
}

// assemble builds an aggregate from submitted components.
func (s *Service) assemble(ctx context.Context, inputs []ComponentInput) (*compat.Evaluator, *Aggregate, error) {
	ev, err := s.evaluators.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	agg := NewAggregate(ev.Registry())
	for _, in := range inputs {
		p, err := s.product(ctx, in.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if err := agg.AddComponent(in.ComponentTypeID, p, in.Options); err != nil {
			return nil, nil, err
		}
	}
	return ev, agg, nil
}

// load rebuilds the aggregate of a stored build.
func (s *Service) load(ctx context.Context, b *Build) (*compat.Evaluator, *Aggregate, error) {
	ev, err := s.evaluators.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	agg := NewAggregate(ev.Registry())
	for _, c := range b.Components {
		p, err := s.products.GetProduct(ctx, c.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("lookup product %d: %w", c.ProductID, err)
		}
		if p == nil {
			return nil, nil, &catalog.IntegrityError{
				Entity:  "product",
				ID:      c.ProductID,
				Message: fmt.Sprintf("build %s references a missing product", b.ID),
			}
		}
		if err := agg.restore(c.ComponentTypeID, p, c.SelectedOptions); err != nil {
			return nil, nil, err
		}
	}
	return ev, agg, nil
}
