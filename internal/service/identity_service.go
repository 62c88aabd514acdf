package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/kalamna/auth-api/internal/models"
	"github.com/kalamna/auth-api/internal/token"
	appErrors "github.com/kalamna/auth-api/pkg/errors"
)

type identityRepository interface {
	FindEmployeeWithBusiness(ctx context.Context, id string) (*models.Employee, *models.Business, error)
}

// IdentityService resolves a bearer access token to the employee behind it.
type IdentityService struct {
	repo   identityRepository
	codec  *token.Codec
	logger *zap.Logger
}

// NewIdentityService creates a new instance of IdentityService.
func NewIdentityService(repo identityRepository, codec *token.Codec, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{repo: repo, codec: codec, logger: logger}
}

// Resolve verifies an access token and loads the employee with its business.
// A bad token and a token whose employee no longer exists both come back as
// the same unauthenticated error.
func (s *IdentityService) Resolve(ctx context.Context, accessToken string) (*models.MeResponse, error) {
	claims, err := s.codec.Decode(accessToken, token.AudienceAccess)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	if claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}

	employee, business, err := s.repo.FindEmployeeWithBusiness(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	return &models.MeResponse{
		ID:       employee.ID,
		Email:    employee.Email,
		FullName: employee.FullName,
		Role:     employee.Role,
		Business: business.Name,
	}, nil
}
