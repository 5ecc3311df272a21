package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"mythos/internal/util"
	"mythos/pkg/domain"
)

// CreateShareInput carries the fields for a new share link. ExpiresIn is in
// days; nil means the link never expires.
type CreateShareInput struct {
	AccessType string `json:"accessType"`
	ExpiresIn  *int   `json:"expiresIn"`
}

// CreateShare mints a share link for a project. Owner only.
func (a *App) CreateShare(identity domain.Identity, projectID string, in CreateShareInput) (domain.ShareInfo, error) {
	p, err := a.ownedProject(projectID, identity)
	if err != nil {
		return domain.ShareInfo{}, err
	}
	accessType := in.AccessType
	if accessType == "" {
		accessType = string(domain.AccessRead)
	}
	switch domain.AccessType(accessType) {
	case domain.AccessRead, domain.AccessComment:
	default:
		return domain.ShareInfo{}, validation("Invalid access type")
	}
	var expiresAt *time.Time
	if in.ExpiresIn != nil {
		if *in.ExpiresIn <= 0 {
			return domain.ShareInfo{}, validation("expiresIn must be a positive number of days")
		}
		t := now().Add(time.Duration(*in.ExpiresIn) * 24 * time.Hour)
		expiresAt = &t
	}
	share := domain.ProjectShare{
		ID:         util.NewID(),
		ProjectID:  p.ID,
		ShareToken: newShareToken(),
		AccessType: domain.AccessType(accessType),
		CreatedBy:  identity.UserID,
		ExpiresAt:  expiresAt,
		CreatedAt:  now(),
	}
	if err := a.store.SaveShare(share); err != nil {
		return domain.ShareInfo{}, fmt.Errorf("save share: %w", err)
	}
	return a.shareInfo(share), nil
}

// ResolveShare resolves a public share token into the read-only project
// view. Expired and unknown tokens look the same to the caller.
func (a *App) ResolveShare(token string) (domain.SharedProjectView, error) {
	share, found, err := a.store.GetShareByToken(token)
	if err != nil {
		return domain.SharedProjectView{}, fmt.Errorf("get share: %w", err)
	}
	if !found || shareExpired(share) {
		return domain.SharedProjectView{}, notFound("Share link")
	}
	p, found, err := a.store.GetProject(share.ProjectID)
	if err != nil {
		return domain.SharedProjectView{}, fmt.Errorf("get project: %w", err)
	}
	if !found {
		return domain.SharedProjectView{}, notFound("Share link")
	}
	chapters, err := a.store.ListChaptersByProject(p.ID)
	if err != nil {
		return domain.SharedProjectView{}, fmt.Errorf("list chapters: %w", err)
	}
	return domain.SharedProjectView{
		Project: domain.SharedProject{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Genre:       p.Genre,
			WordCount:   p.WordCount,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		},
		Chapters:     chapters,
		AccessType:   share.AccessType,
		IsSharedView: true,
	}, nil
}

// ListShares returns a project's share links with derived fields. Expired
// links stay listed so the owner can see and revoke them. Owner only.
func (a *App) ListShares(identity domain.Identity, projectID string) ([]domain.ShareInfo, error) {
	if _, err := a.ownedProject(projectID, identity); err != nil {
		return nil, err
	}
	shares, err := a.store.ListSharesByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	res := make([]domain.ShareInfo, 0, len(shares))
	for _, share := range shares {
		res = append(res, a.shareInfo(share))
	}
	return res, nil
}

// DeleteShare revokes a share link. Owner only. Deleting an id that does not
// exist is a no-op; revocation reports success either way.
func (a *App) DeleteShare(identity domain.Identity, projectID, shareID string) error {
	if _, err := a.ownedProject(projectID, identity); err != nil {
		return err
	}
	if err := a.store.DeleteShare(projectID, shareID); err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

func (a *App) shareInfo(share domain.ProjectShare) domain.ShareInfo {
	return domain.ShareInfo{
		ProjectShare: share,
		ShareURL:     a.frontendURL + "/shared/" + share.ShareToken,
		IsExpired:    shareExpired(share),
	}
}

func shareExpired(share domain.ProjectShare) bool {
	return share.ExpiresAt != nil && share.ExpiresAt.Before(now())
}

func newShareToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
