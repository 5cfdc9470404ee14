// Package auth resolves the project a request is authenticated as, from its
// bearer token and an optional explicit project id.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

// LegacyTokenHeader is accepted alongside the standard Authorization header
// for callers carried over from older integrations.
const LegacyTokenHeader = "X-Project-Token"

// Repo is the persistence dependency the authenticator consumes.
type Repo interface {
	GetProject(ctx context.Context, id string) (watchdog.Project, error)
	GetProjectByToken(ctx context.Context, token string) (watchdog.Project, error)
}

// Authenticator resolves a watchdog.Project from a bearer token, optionally
// scoped to an explicit project id.
type Authenticator struct {
	repo Repo
}

// New creates an Authenticator over repo.
func New(repo Repo) *Authenticator {
	return &Authenticator{repo: repo}
}

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the legacy X-Project-Token header.
func TokenFromRequest(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(auth, prefix) {
			return strings.TrimSpace(auth[len(prefix):])
		}
	}
	return strings.TrimSpace(r.Header.Get(LegacyTokenHeader))
}

// Resolve authenticates token against projectID when given, or against
// whichever project owns the token when projectID is empty.
//
// Returns watchdog.ErrUnauthorized if the token is empty or matches no
// project, and watchdog.ErrForbidden if projectID is given but belongs to a
// different project than the token.
func (a *Authenticator) Resolve(ctx context.Context, projectID, token string) (watchdog.Project, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return watchdog.Project{}, watchdog.ErrUnauthorized
	}

	if projectID == "" {
		return a.repo.GetProjectByToken(ctx, token)
	}

	project, err := a.repo.GetProject(ctx, projectID)
	if err != nil {
		return watchdog.Project{}, err
	}
	if !tokensMatch(project.Token, token) {
		return watchdog.Project{}, watchdog.ErrForbidden
	}
	return project, nil
}

func tokensMatch(want, got string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
