package provider

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/session"
)

var errOrganizationsDisabled = &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "Organizations are not enabled"}

type setActiveOrganizationBody struct {
	OrganizationID *int64 `json:"organizationId"`
}

func (p *Provider) requireSession(hc *HookContext) (*SessionData, error) {
	data, err := p.GetSession(hc.Context(), hc.Request.Header)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errUnauthorized
	}
	return data, nil
}

// memberOrganization loads orgID and checks that userID belongs to it.
func (p *Provider) memberOrganization(hc *HookContext, orgID, userID int64) (*Organization, error) {
	ctx := hc.Context()
	org, err := p.opts.Organizations.OrganizationByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errOrgNotFound
		}
		return nil, err
	}
	member, err := p.opts.Organizations.IsMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errNotOrgMember
	}
	return org, nil
}

// setActiveOrganization switches the session's active organization. A null
// organizationId clears it.
func (p *Provider) setActiveOrganization(hc *HookContext) (*Response, error) {
	if p.opts.Organizations == nil {
		return nil, errOrganizationsDisabled
	}
	var body setActiveOrganizationBody
	if err := hc.DecodeBody(&body); err != nil {
		return nil, err
	}
	data, err := p.requireSession(hc)
	if err != nil {
		return nil, err
	}

	var org *Organization
	if body.OrganizationID != nil {
		org, err = p.memberOrganization(hc, *body.OrganizationID, data.User.ID)
		if err != nil {
			return nil, err
		}
	}

	ctx := hc.Context()
	if _, err := p.sessions.SetActiveOrganization(ctx, data.Session.ID, body.OrganizationID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, errUnauthorized
		}
		return nil, err
	}

	meta := map[string]string{}
	if body.OrganizationID != nil {
		meta["organization_id"] = strconv.FormatInt(*body.OrganizationID, 10)
	}
	p.emit(ctx, audit.Event{
		EventType: audit.EventActiveOrgChanged,
		UserID:    formatID(data.User.ID),
		SessionID: data.Session.ID,
		Path:      hc.Path,
		IP:        p.clientIP(hc.Request),
		Success:   true,
		Metadata:  meta,
	})
	return jsonResponse(org), nil
}

// getFullOrganization returns ?organizationId= or the session's active organization,
// or null when neither is set.
func (p *Provider) getFullOrganization(hc *HookContext) (*Response, error) {
	if p.opts.Organizations == nil {
		return nil, errOrganizationsDisabled
	}
	data, err := p.requireSession(hc)
	if err != nil {
		return nil, err
	}

	orgID := data.Session.ActiveOrganizationID
	if raw := hc.Request.URL.Query().Get("organizationId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errOrgNotFound
		}
		orgID = &id
	}
	if orgID == nil {
		return jsonResponse(nil), nil
	}

	org, err := p.memberOrganization(hc, *orgID, data.User.ID)
	if err != nil {
		return nil, err
	}
	return jsonResponse(org), nil
}

// createOrganization is closed to users; organizations are provisioned out of band.
func (p *Provider) createOrganization(*HookContext) (*Response, error) {
	return nil, errOrgCreateForbidden
}
