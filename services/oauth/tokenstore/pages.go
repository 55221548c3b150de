package tokenstore

import (
	"context"
	"errors"

	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

var ErrNoPage = errors.New("no postable page")

// PageSelector picks the page to post to from the pages a user manages.
type PageSelector interface {
	Select(pages []oauthmodel.PageToken) (oauthmodel.PageToken, bool)
}

type FirstPage struct{}

func (FirstPage) Select(pages []oauthmodel.PageToken) (oauthmodel.PageToken, bool) {
	if len(pages) == 0 {
		return oauthmodel.PageToken{}, false
	}
	return pages[0], true
}

type PageByID struct {
	ID string
}

func (s PageByID) Select(pages []oauthmodel.PageToken) (oauthmodel.PageToken, bool) {
	for _, p := range pages {
		if p.PageID == s.ID {
			return p, true
		}
	}
	return oauthmodel.PageToken{}, false
}

// GetPageToken returns a page token of a valid parent credential. Page tokens are renewed by
// refreshing the parent.
func (s *Store) GetPageToken(c context.Context, credentialID string, selector PageSelector) (oauthmodel.PageToken, error) {
	tokenSet, err := s.GetValidToken(c, credentialID)
	if err != nil {
		return oauthmodel.PageToken{}, err
	}

	page, found := selector.Select(tokenSet.Pages)
	if !found {
		return oauthmodel.PageToken{}, ErrNoPage
	}
	return page, nil
}
