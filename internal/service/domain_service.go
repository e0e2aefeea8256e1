package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/velmor/dnslinkbot/internal/cloudflare"
	"github.com/velmor/dnslinkbot/internal/config"
	"github.com/velmor/dnslinkbot/internal/models"
	"github.com/velmor/dnslinkbot/internal/repository"
)

const (
	labelAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	recordTTL     = 1 // Cloudflare "automatic"
	listLimit     = 30
)

// ZoneClient is the slice of the DNS provider client the orchestrator needs.
type ZoneClient interface {
	Upsert(ctx context.Context, rtype, name, content string, ttl int, proxied bool) (*cloudflare.Record, error)
	CreateIfAbsent(ctx context.Context, rtype, name, content string, ttl int) (*cloudflare.Record, bool, error)
	Delete(ctx context.Context, name, rtype string, content ...string) (int, error)
}

// NSInfo describes one nameserver record attached to a binding.
type NSInfo struct {
	Name  string
	Value string
}

// Binding is the rendered result of a successful create or rebind.
type Binding struct {
	FQDN      string
	IP        string
	NS        []NSInfo
	Remaining int
}

// DomainService orchestrates the subdomain lifecycle: quota decision first,
// then DNS reconciliation, then the local row, strictly in that order. A DNS
// failure after quota consumption is accepted lost quota; a DNS failure
// before the row write leaves no local record.
type DomainService struct {
	cfg      config.Config
	log      *slog.Logger
	quota    *QuotaService
	dns      ZoneClient
	domains  *repository.DomainRepository
	settings *SettingsService
}

func NewDomainService(cfg config.Config, log *slog.Logger, quota *QuotaService, dns ZoneClient, domains *repository.DomainRepository, settings *SettingsService) *DomainService {
	return &DomainService{
		cfg:      cfg,
		log:      log,
		quota:    quota,
		dns:      dns,
		domains:  domains,
		settings: settings,
	}
}

// Create provisions a fresh random subdomain bound to the supplied IP.
// The membership gate is the gateway's responsibility and is assumed to have
// passed before this call.
func (s *DomainService) Create(ctx context.Context, user *models.User, ip string) (*Binding, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return nil, ErrEmptyIP
	}
	if err := s.checkAccess(ctx, user); err != nil {
		return nil, err
	}

	allowed, remaining, err := s.quota.CheckAndConsume(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	if !allowed {
		return nil, ErrQuotaExceeded
	}

	label := randomLabel(s.cfg.LabelLength)
	fqdn := label + "." + s.cfg.BaseDomain
	requestID := uuid.NewString()
	s.log.Info("provisioning subdomain", "request_id", requestID, "user_id", user.ID, "fqdn", fqdn)

	// Quota is committed at this point; a DNS failure from here on does not
	// refund the consumed unit.
	if _, err := s.dns.Upsert(ctx, "A", fqdn, ip, recordTTL, false); err != nil {
		s.log.Error("a record upsert failed", "request_id", requestID, "fqdn", fqdn, "err", err)
		return nil, err
	}

	ns, err := s.applyNameservers(ctx, label, fqdn)
	if err != nil {
		// The A record stays in place; cleanup is an operator concern.
		s.log.Error("ns record upsert failed", "request_id", requestID, "fqdn", fqdn, "err", err)
		return nil, err
	}

	sub := &models.Subdomain{UserID: user.ID, FQDN: fqdn, IP: ip}
	if err := s.domains.Insert(ctx, sub); err != nil {
		s.log.Error("domain row insert failed", "request_id", requestID, "fqdn", fqdn, "err", err)
		return nil, err
	}

	s.log.Info("subdomain provisioned", "request_id", requestID, "user_id", user.ID, "fqdn", fqdn, "remaining", remaining)
	return &Binding{FQDN: fqdn, IP: ip, NS: ns, Remaining: remaining}, nil
}

// Rebind points an existing binding at a new IP. Ownership is verified by the
// (owner, fqdn) pair before any DNS call; no quota is consumed and no new
// label is generated.
func (s *DomainService) Rebind(ctx context.Context, user *models.User, fqdn, ip string) (*Binding, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return nil, ErrEmptyIP
	}
	if err := s.checkAccess(ctx, user); err != nil {
		return nil, err
	}

	owned, err := s.domains.FindByOwnerAndName(ctx, user.ID, fqdn)
	if err != nil {
		return nil, fmt.Errorf("lookup domain: %w", err)
	}
	if owned == nil {
		return nil, ErrNotOwner
	}

	if _, err := s.dns.Upsert(ctx, "A", fqdn, ip, recordTTL, false); err != nil {
		return nil, err
	}
	ns, err := s.applyNameservers(ctx, labelOf(fqdn), fqdn)
	if err != nil {
		return nil, err
	}

	if err := s.domains.UpdateIP(ctx, user.ID, fqdn, ip); err != nil {
		return nil, err
	}

	s.log.Info("subdomain rebound", "user_id", user.ID, "fqdn", fqdn, "ip", ip)
	return &Binding{FQDN: fqdn, IP: ip, NS: ns}, nil
}

// Delete removes the binding's DNS records and then the local row. Zero
// provider-side matches still count as success, so delete is idempotent; the
// row is only removed when no DNS call failed.
func (s *DomainService) Delete(ctx context.Context, user *models.User, fqdn string) error {
	if err := s.checkAccess(ctx, user); err != nil {
		return err
	}

	owned, err := s.domains.FindByOwnerAndName(ctx, user.ID, fqdn)
	if err != nil {
		return fmt.Errorf("lookup domain: %w", err)
	}
	if owned == nil {
		return ErrNotOwner
	}

	if _, err := s.dns.Delete(ctx, fqdn, "A"); err != nil {
		return err
	}
	nsName := fqdn
	if !s.cfg.SharedNameservers() {
		nsName = "ns." + labelOf(fqdn) + "." + s.cfg.BaseDomain
	}
	if _, err := s.dns.Delete(ctx, nsName, "NS"); err != nil {
		return err
	}

	if err := s.domains.Delete(ctx, user.ID, fqdn); err != nil {
		return err
	}

	s.log.Info("subdomain deleted", "user_id", user.ID, "fqdn", fqdn)
	return nil
}

func (s *DomainService) List(ctx context.Context, userID int64) ([]models.Subdomain, error) {
	return s.domains.ListByOwner(ctx, userID, listLimit)
}

func (s *DomainService) CountAll(ctx context.Context) (int, error) {
	return s.domains.Count(ctx)
}

// NSRecordsFor reports the nameserver records a binding carries, for display.
func (s *DomainService) NSRecordsFor(fqdn string) []NSInfo {
	if s.cfg.SharedNameservers() {
		return []NSInfo{
			{Name: fqdn, Value: s.cfg.Nameserver1},
			{Name: fqdn, Value: s.cfg.Nameserver2},
		}
	}
	nsName := "ns." + labelOf(fqdn) + "." + s.cfg.BaseDomain
	return []NSInfo{{Name: nsName, Value: fqdn}}
}

// applyNameservers reconciles the NS records for a binding. The shared-pair
// variant upserts the first nameserver and adds the second only when its
// exact content is absent, so the second create never clobbers the first
// record of the same name+type. The self-delegation variant maintains a
// single ns.<label> record pointing back at the subdomain.
func (s *DomainService) applyNameservers(ctx context.Context, label, fqdn string) ([]NSInfo, error) {
	if s.cfg.SharedNameservers() {
		if _, err := s.dns.Upsert(ctx, "NS", fqdn, s.cfg.Nameserver1, recordTTL, false); err != nil {
			return nil, err
		}
		if _, _, err := s.dns.CreateIfAbsent(ctx, "NS", fqdn, s.cfg.Nameserver2, recordTTL); err != nil {
			return nil, err
		}
		return []NSInfo{
			{Name: fqdn, Value: s.cfg.Nameserver1},
			{Name: fqdn, Value: s.cfg.Nameserver2},
		}, nil
	}

	nsName := "ns." + label + "." + s.cfg.BaseDomain
	if _, err := s.dns.Upsert(ctx, "NS", nsName, fqdn, recordTTL, false); err != nil {
		return nil, err
	}
	return []NSInfo{{Name: nsName, Value: fqdn}}, nil
}

func (s *DomainService) checkAccess(ctx context.Context, user *models.User) error {
	if s.quota.IsOperator(user.ID) {
		return nil
	}
	enabled, err := s.settings.BotEnabled(ctx)
	if err != nil {
		return fmt.Errorf("read bot status: %w", err)
	}
	if !enabled {
		return ErrServiceDisabled
	}
	if user.Banned {
		return ErrUserBanned
	}
	return nil
}

func labelOf(fqdn string) string {
	if idx := strings.IndexByte(fqdn, '.'); idx > 0 {
		return fqdn[:idx]
	}
	return fqdn
}

// randomLabel draws a fresh leftmost segment from the fixed alphabet. Labels
// are not checked for collisions against stored or provider-side records.
func randomLabel(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = labelAlphabet[rand.IntN(len(labelAlphabet))]
	}
	return string(b)
}
