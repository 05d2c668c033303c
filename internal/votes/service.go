package votes

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/internal/settings"
	"github.com/eventra-africa/eventra-backend/internal/split"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	errs "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateVoteInput captures a paid-vote request. NomineeID takes precedence;
// NomineeCode is the USSD/SMS path and requires AwardID.
type CreateVoteInput struct {
	AwardID     uuid.UUID `json:"award_id"`
	NomineeID   uuid.UUID `json:"nominee_id"`
	NomineeCode string    `json:"nominee_code"`
	Votes       int       `json:"votes"`
	VoterPhone  string    `json:"voter_phone"`
}

// Service defines checkout-side vote purchase operations.
type Service interface {
	CreateVotePurchase(ctx context.Context, input CreateVoteInput) (*models.VotePurchase, error)
	GetByReference(ctx context.Context, reference string) (*models.VotePurchase, error)
}

// Params wires the votes service dependencies.
type Params struct {
	Repo     Repository
	Tx       txRunner
	Split    split.Calculator
	Settings settings.Service
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	split    split.Calculator
	settings settings.Service
	logg     *logger.Logger
}

// NewService validates dependencies and returns a votes service.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("votes repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("votes logger required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		split:    params.Split,
		settings: params.Settings,
		logg:     params.Logger,
	}, nil
}

// CreateVotePurchase persists the pending vote batch with its revenue split
// precomputed. The nominee tally is untouched until the payment confirms.
func (s *service) CreateVotePurchase(ctx context.Context, input CreateVoteInput) (*models.VotePurchase, error) {
	if input.Votes <= 0 {
		return nil, errs.New(errs.CodeValidation, "vote count must be positive")
	}
	if input.NomineeID == uuid.Nil && (input.AwardID == uuid.Nil || input.NomineeCode == "") {
		return nil, errs.New(errs.CodeValidation, "nominee id or award id plus nominee code is required")
	}

	var vote *models.VotePurchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		nominee, err := s.resolveNominee(ctx, repo, input)
		if err != nil {
			return err
		}
		award, err := repo.FindAward(ctx, nominee.AwardID)
		if err != nil {
			return err
		}
		if award == nil {
			return errs.New(errs.CodeNotFound, "award not found")
		}
		if err := votingOpen(award, time.Now()); err != nil {
			return err
		}

		gross := award.VotePrice.Mul(decimal.NewFromInt(int64(input.Votes)))
		adminShare, err := s.settings.AwardAdminShare(ctx)
		if err != nil {
			return err
		}
		if award.AdminSharePercent != nil {
			adminShare = *award.AdminSharePercent
		}
		paymentFee, err := s.settings.PaymentFee(ctx)
		if err != nil {
			return err
		}
		revenue, err := s.split.Split(gross, adminShare, paymentFee)
		if err != nil {
			return err
		}

		vote = &models.VotePurchase{
			ID:              uuid.New(),
			Reference:       newVoteReference(),
			AwardID:         award.ID,
			NomineeID:       nominee.ID,
			OrganizerID:     award.OrganizerID,
			VoterPhone:      input.VoterPhone,
			Votes:           input.Votes,
			GrossAmount:     revenue.GrossAmount,
			AdminAmount:     revenue.AdminAmount,
			OrganizerAmount: revenue.OrganizerAmount,
			PaymentFee:      revenue.PaymentFee,
		}
		return repo.CreateVote(ctx, vote)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithReference(ctx, vote.Reference), "vote purchase created")
	return vote, nil
}

func (s *service) GetByReference(ctx context.Context, reference string) (*models.VotePurchase, error) {
	if reference == "" {
		return nil, errs.New(errs.CodeValidation, "reference is required")
	}
	return s.repo.FindByReference(ctx, reference)
}

func (s *service) resolveNominee(ctx context.Context, repo Repository, input CreateVoteInput) (*models.AwardNominee, error) {
	if input.NomineeID != uuid.Nil {
		nominee, err := repo.FindNominee(ctx, input.NomineeID)
		if err != nil {
			return nil, err
		}
		if nominee == nil {
			return nil, errs.New(errs.CodeNotFound, "nominee not found")
		}
		return nominee, nil
	}
	nominee, err := repo.FindNomineeByCode(ctx, input.AwardID, input.NomineeCode)
	if err != nil {
		return nil, err
	}
	if nominee == nil {
		return nil, errs.New(errs.CodeNotFound, "nominee code not found for award")
	}
	return nominee, nil
}

func votingOpen(award *models.Award, now time.Time) error {
	if !award.Published {
		return errs.New(errs.CodeStateConflict, "award is not open for voting")
	}
	if award.VotingOpensAt != nil && now.Before(*award.VotingOpensAt) {
		return errs.New(errs.CodeStateConflict, "voting has not opened yet")
	}
	if award.VotingClosesAt != nil && now.After(*award.VotingClosesAt) {
		return errs.New(errs.CodeStateConflict, "voting has closed")
	}
	return nil
}

// newVoteReference builds a provider-safe ASCII reference, well under the
// 100-character ceiling shared with the ledger.
func newVoteReference() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("EVE-VOTE-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("EVE-VOTE-%s-%s", time.Now().UTC().Format("20060102150405"), hex.EncodeToString(buf))
}
