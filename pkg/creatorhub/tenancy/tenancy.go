// Package tenancy resolves which organization a request is addressed to and
// who is viewing it.
package tenancy

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/apierror"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"gorm.io/gorm"
)

const (
	// HeaderOrganizationID selects the tenant by id
	HeaderOrganizationID = "X-Organization-ID"
	// HeaderOrganizationSlug selects the tenant by slug
	HeaderOrganizationSlug = "X-Organization-Slug"

	// ContextKeyOrganization is the key for the resolved organization in gin context
	ContextKeyOrganization = "organization"
)

// ErrNotFound is returned when no organization matches the request
var ErrNotFound = errors.New("organization not found")

// Resolver maps requests to organizations
type Resolver struct {
	db         *gorm.DB
	baseDomain string
}

// NewResolver creates a resolver. baseDomain is the platform apex under which
// organizations are served as <slug>.<baseDomain>.
func NewResolver(db *gorm.DB, baseDomain string) *Resolver {
	return &Resolver{db: db, baseDomain: strings.ToLower(strings.TrimSpace(baseDomain))}
}

// Resolve finds the organization a request is addressed to. Explicit headers
// win over the Host header.
func (r *Resolver) Resolve(req *http.Request) (*models.Organization, error) {
	if idStr := req.Header.Get(HeaderOrganizationID); idStr != "" {
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return nil, ErrNotFound
		}
		return r.find("id = ?", uint(id))
	}
	if slug := req.Header.Get(HeaderOrganizationSlug); slug != "" {
		return r.find("slug = ?", strings.ToLower(strings.TrimSpace(slug)))
	}
	return r.ResolveHost(req.Host)
}

// ResolveHost maps a host name to an organization: first the organization's
// custom domain, then its extra domains, then <slug>.<baseDomain>.
func (r *Resolver) ResolveHost(host string) (*models.Organization, error) {
	host = normalizeHost(host)
	if host == "" {
		return nil, ErrNotFound
	}

	org, err := r.find("custom_domain = ?", host)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return org, err
	}

	var domain models.OrganizationDomain
	err = r.db.Where("domain = ?", host).First(&domain).Error
	if err == nil {
		return r.find("id = ?", domain.OrganizationID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if slug, ok := r.subdomainSlug(host); ok {
		return r.find("slug = ?", slug)
	}
	return nil, ErrNotFound
}

func (r *Resolver) subdomainSlug(host string) (string, bool) {
	if r.baseDomain == "" {
		return "", false
	}
	suffix := "." + r.baseDomain
	if !strings.HasSuffix(host, suffix) {
		return "", false
	}
	slug := strings.TrimSuffix(host, suffix)
	if slug == "" || strings.Contains(slug, ".") {
		return "", false
	}
	return slug, true
}

func (r *Resolver) find(query string, arg interface{}) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.Where(query, arg).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// normalizeHost lowercases and strips any port
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

// Middleware resolves the tenant and stores it in the gin context.
// Requests that match no organization get a 404.
func (r *Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		org, err := r.Resolve(c.Request)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			} else {
				apierror.Internal(c, "resolve tenant", err)
			}
			c.Abort()
			return
		}
		c.Set(ContextKeyOrganization, org)
		c.Next()
	}
}

// GetOrganization returns the resolved organization from the gin context
func GetOrganization(c *gin.Context) (*models.Organization, bool) {
	v, exists := c.Get(ContextKeyOrganization)
	if !exists {
		return nil, false
	}
	org, ok := v.(*models.Organization)
	return org, ok
}

// RequireFeature answers 404 for a product area the organization has turned
// off. flag picks the toggle out of the resolved settings.
func RequireFeature(name string, flag func(models.FeatureSettings) *bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, ok := GetOrganization(c)
		if !ok || !models.Enabled(flag(org.ResolvedSettings().Features)) {
			c.JSON(http.StatusNotFound, gin.H{"error": name + " are not enabled for this organization"})
			c.Abort()
			return
		}
		c.Next()
	}
}
