package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/nimbus-crm/nimbus-crm/internal/metrics"
)

// ErrInvalidStage indicates a stage outside StageOptions.
var ErrInvalidStage = errors.New("pipeline: invalid stage")

// RefreshSuspender scopes out change-triggered metric refreshes during bulk
// operations. Satisfied by the metrics refresher.
type RefreshSuspender interface {
	Suspend(ctx context.Context) (context.Context, func())
}

// Service owns deal lifecycle. Every committed mutation publishes a change
// event so the metrics pipeline can react.
type Service struct {
	repo      Repository
	events    metrics.Publisher
	suspender RefreshSuspender
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewService(repo Repository, events metrics.Publisher, suspender RefreshSuspender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		events:    events,
		suspender: suspender,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Deal, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListDealsRequest) ([]Deal, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) Create(ctx context.Context, req CreateDealRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, err
	}
	stage := req.Stage
	if stage == "" {
		stage = StageProspecting
	}
	if !ValidStage(stage) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}

	deal := Deal{
		Name:           req.Name,
		Company:        req.Company,
		Industry:       req.Industry,
		Email:          req.Email,
		MobileNumber:   req.MobileNumber,
		OwnerID:        req.OwnerID,
		SalesLeadID:    req.SalesLeadID,
		Product:        req.Product,
		ContractTerm:   req.ContractTerm,
		MRC:            req.MRC,
		OTC:            req.OTC,
		Stage:          stage,
		WinRate:        req.WinRate,
		EstSignDate:    req.EstSignDate,
		ActivationDate: req.ActivationDate,
		Comments:       req.Comments,
	}
	if req.TCV != nil && *req.TCV > 0 {
		deal.TCV = *req.TCV
	} else {
		deal.TCV = deal.DerivedTCV()
	}

	id, err := s.repo.Create(ctx, deal)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, "create", deal.OwnerID)
	return id, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateDealRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	if req.Stage != nil && !ValidStage(*req.Stage) {
		return fmt.Errorf("%w: %q", ErrInvalidStage, *req.Stage)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.OwnerID != nil {
		updates["owner_id"] = *req.OwnerID
	}
	if req.Product != nil {
		updates["product"] = *req.Product
	}
	if req.ContractTerm != nil {
		updates["contract_term_yrs"] = *req.ContractTerm
	}
	if req.MRC != nil {
		updates["mrc_usd"] = *req.MRC
	}
	if req.OTC != nil {
		updates["otc_usd"] = *req.OTC
	}
	if req.Stage != nil {
		updates["stage"] = *req.Stage
	}
	if req.WinRate != nil {
		updates["win_rate"] = *req.WinRate
	}
	if req.EstSignDate != nil {
		updates["est_sign_date"] = *req.EstSignDate
	}
	if req.ActivationDate != nil {
		updates["est_act_date"] = *req.ActivationDate
	}
	if req.Comments != nil {
		updates["comments"] = *req.Comments
	}

	// Recompute TCV when a revenue component moves and no explicit value is
	// supplied; an explicit tcv_usd always wins.
	if req.TCV != nil {
		updates["tcv_usd"] = *req.TCV
	} else if req.MRC != nil || req.OTC != nil || req.ContractTerm != nil {
		next := *existing
		if req.MRC != nil {
			next.MRC = *req.MRC
		}
		if req.OTC != nil {
			next.OTC = *req.OTC
		}
		if req.ContractTerm != nil {
			next.ContractTerm = *req.ContractTerm
		}
		updates["tcv_usd"] = next.DerivedTCV()
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

// CreateConverted opens a deal for a lead that just converted. The deal
// starts at Lead Qualified with no revenue figures attached yet.
func (s *Service) CreateConverted(ctx context.Context, name string, company, industry, email, mobile *string, ownerID, salesLeadID int64) (int64, error) {
	deal := Deal{
		Name:         name,
		Company:      company,
		Industry:     industry,
		Email:        email,
		MobileNumber: mobile,
		OwnerID:      ownerID,
		SalesLeadID:  &salesLeadID,
		Stage:        StageLeadQualified,
	}
	id, err := s.repo.Create(ctx, deal)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, "create", ownerID)
	return id, nil
}

// ImportBatch inserts pre-decoded rows under a suspended refresh scope, so
// the metrics pipeline runs once per affected owner at the end instead of
// once per row.
func (s *Service) ImportBatch(ctx context.Context, rows []CreateDealRequest) (int, error) {
	sctx := ctx
	resume := func() {}
	if s.suspender != nil {
		sctx, resume = s.suspender.Suspend(ctx)
	}
	defer resume()

	imported := 0
	for i, row := range rows {
		if _, err := s.Create(sctx, row); err != nil {
			return imported, fmt.Errorf("pipeline: import row %d: %w", i+1, err)
		}
		imported++
	}
	return imported, nil
}

func (s *Service) publish(ctx context.Context, action string, ownerID int64) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, metrics.NewChangeEvent("opportunity", action, &ownerID))
}
