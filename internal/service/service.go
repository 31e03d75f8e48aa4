package service

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/pkg/apperror"
	"crms/pkg/pagination"
)

// Actor is the authenticated caller as supplied by the auth middleware
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleSystemAdmin }

func (a Actor) HasRole(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// scopeFor maps a role to the rows it may list. Managers see their projects,
// supervisors see their sites, every other role sees everything.
func scopeFor(a Actor) repository.Scope {
	switch a.Role {
	case model.RoleProjectManager:
		return repository.Scope{ManagerID: a.UserID}
	case model.RoleSiteSupervisor:
		return repository.Scope{SupervisorID: a.UserID}
	}
	return repository.Scope{}
}

// lookupError turns a repository read failure into a domain error
func lookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s not found", what)
	}
	return apperror.Internal(err, "failed to load %s", what)
}

func manages(p *model.Project, userID int64) bool {
	return p != nil && p.ManagerID != nil && *p.ManagerID == userID
}

func supervises(s *model.Site, userID int64) bool {
	return s != nil && s.SupervisorID != nil && *s.SupervisorID == userID
}

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD; nil or blank gives nil
func parseDate(field string, v *string) (*time.Time, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*v))
	if err != nil {
		return nil, apperror.Validation("%s must be a date in YYYY-MM-DD format", field)
	}
	return &t, nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func normalizePage(page, limit int) (int, int) {
	p := pagination.Normalize(page, limit)
	return p.Page, p.Limit
}
