package users

import "userdesk/internal/models"

// RequireSession is the session gate: it fails with ErrUnauthorized unless p
// identifies an authenticated caller.
func RequireSession(p *models.Principal) (*models.Principal, error) {
	if p == nil || p.ID == "" {
		return nil, ErrUnauthorized
	}
	return p, nil
}
