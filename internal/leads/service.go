package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/nimbus-crm/nimbus-crm/internal/metrics"
)

// ErrInvalidStatus indicates a status outside StatusOptions.
var ErrInvalidStatus = errors.New("leads: invalid status")

// ConvertedDeal carries the fields handed to the pipeline when a qualified
// lead converts.
type ConvertedDeal struct {
	Name         string
	Company      *string
	Industry     *string
	Email        *string
	MobileNumber *string
	OwnerID      int64
	SalesLeadID  int64
}

// DealCreator creates a pipeline deal from a converted lead.
type DealCreator interface {
	CreateConverted(ctx context.Context, deal ConvertedDeal) (int64, error)
}

// DealCreatorFunc adapts a function to the DealCreator interface.
type DealCreatorFunc func(ctx context.Context, deal ConvertedDeal) (int64, error)

func (f DealCreatorFunc) CreateConverted(ctx context.Context, deal ConvertedDeal) (int64, error) {
	return f(ctx, deal)
}

// RefreshSuspender scopes out change-triggered metric refreshes during bulk
// operations. Satisfied by the metrics refresher.
type RefreshSuspender interface {
	Suspend(ctx context.Context) (context.Context, func())
}

// Service owns lead lifecycle. Every committed mutation publishes a change
// event so the metrics pipeline can react.
type Service struct {
	repo      Repository
	events    metrics.Publisher
	suspender RefreshSuspender
	deals     DealCreator
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewService(repo Repository, events metrics.Publisher, suspender RefreshSuspender, deals DealCreator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		events:    events,
		suspender: suspender,
		deals:     deals,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Lead, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListLeadsRequest) ([]Lead, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) Create(ctx context.Context, req CreateLeadRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, err
	}
	status := req.Status
	if status == "" {
		status = StatusWaitingContact
	}
	if !ValidStatus(status) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	id, err := s.repo.Create(ctx, Lead{
		Name:         req.Name,
		Company:      req.Company,
		Industry:     req.Industry,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		OwnerID:      req.OwnerID,
		Status:       status,
		Source:       req.Source,
		Comments:     req.Comments,
	})
	if err != nil {
		return 0, err
	}
	s.publish(ctx, "create", req.OwnerID)
	return id, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateLeadRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	if req.Status != nil && !ValidStatus(*req.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if req.Industry != nil {
		updates["industry"] = *req.Industry
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.MobileNumber != nil {
		updates["mobile_number"] = *req.MobileNumber
	}
	if req.OwnerID != nil {
		updates["owner_id"] = *req.OwnerID
	}
	if req.Status != nil {
		updates["leads_status"] = *req.Status
	}
	if req.Source != nil {
		updates["source"] = *req.Source
	}
	if req.Comments != nil {
		updates["comments"] = *req.Comments
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return err
	}

	owner := existing.OwnerID
	if req.OwnerID != nil && *req.OwnerID != owner {
		// Reassignment touches both owners' metrics.
		s.publish(ctx, "update", owner)
		owner = *req.OwnerID
	}
	s.publish(ctx, "update", owner)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "delete", existing.OwnerID)
	return nil
}

// Convert marks a lead Qualified and opens a pipeline deal linked back to it.
func (s *Service) Convert(ctx context.Context, id int64) (int64, error) {
	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if lead.Status != StatusQualified {
		if err := s.repo.Update(ctx, id, map[string]interface{}{"leads_status": StatusQualified}); err != nil {
			return 0, err
		}
	}
	dealID, err := s.deals.CreateConverted(ctx, ConvertedDeal{
		Name:         lead.Name,
		Company:      lead.Company,
		Industry:     lead.Industry,
		Email:        lead.Email,
		MobileNumber: lead.MobileNumber,
		OwnerID:      lead.OwnerID,
		SalesLeadID:  lead.ID,
	})
	if err != nil {
		return 0, err
	}
	s.publish(ctx, "update", lead.OwnerID)
	return dealID, nil
}

// ImportBatch inserts pre-decoded rows under a suspended refresh scope, so
// the metrics pipeline runs once per affected owner at the end instead of
// once per row.
func (s *Service) ImportBatch(ctx context.Context, rows []CreateLeadRequest) (int, error) {
	sctx := ctx
	resume := func() {}
	if s.suspender != nil {
		sctx, resume = s.suspender.Suspend(ctx)
	}
	defer resume()

	imported := 0
	for i, row := range rows {
		if _, err := s.Create(sctx, row); err != nil {
			return imported, fmt.Errorf("leads: import row %d: %w", i+1, err)
		}
		imported++
	}
	return imported, nil
}

func (s *Service) publish(ctx context.Context, action string, ownerID int64) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, metrics.NewChangeEvent("lead", action, &ownerID))
}
