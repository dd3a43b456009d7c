package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"sigil/internal/config"
	"sigil/internal/domain"
	"sigil/internal/infra/cachemem"
	"sigil/internal/infra/crypto"
	"sigil/internal/infra/db"
	"sigil/internal/infra/keys/soft"
	"sigil/internal/infra/policyopa"
	"sigil/internal/infra/probe"
	"sigil/internal/infra/ratelimit"
	"sigil/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Registry
	r     *gin.Engine

	signer    *usecase.SigningService
	revoker   *usecase.RevocationManager
	responder *usecase.StatusResponder
	live      *usecase.LiveVerificationService
	certs     usecase.CertificateRepository

	adminAPIKey string
	initErr     error

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Registry) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Signer      *usecase.SigningService
	Revoker     *usecase.RevocationManager
	Responder   *usecase.StatusResponder
	Live        *usecase.LiveVerificationService
	Certs       usecase.CertificateRepository
	AdminAPIKey string
	RateLimiter domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		signer:      deps.Signer,
		revoker:     deps.Revoker,
		responder:   deps.Responder,
		live:        deps.Live,
		certs:       deps.Certs,
		adminAPIKey: deps.AdminAPIKey,
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.adminAPIKey = s.cfg.AdminAPIKey

	cryptoSvc := crypto.NewService()
	keyManager := soft.NewManager()

	var policy usecase.PolicyEngine
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath, s.cfg.PolicyBundleID)
		if err != nil {
			s.initErr = err
			return
		}
		policy = engine
	}

	var (
		certRepo  usecase.CertificateRepository
		keyRepo   usecase.KeyRepository
		revRepo   usecase.RevocationRepository
		verRepo   usecase.VerificationRepository
		auditRepo usecase.AuditRepository
		cache     usecase.OCSPCacheStore
	)
	if s.store != nil {
		certRepo = s.store.Certificates
		keyRepo = s.store.Keys
		revRepo = s.store.Revocations
		verRepo = s.store.Verifications
		auditRepo = s.store.Audit
		cache = s.store.OCSPCache
	}
	if cache == nil {
		cache = cachemem.New()
	}

	audit := &usecase.AuditEmitter{Repo: auditRepo}

	s.signer = &usecase.SigningService{
		Certs:      certRepo,
		Keys:       keyRepo,
		KeyManager: keyManager,
		Crypto:     cryptoSvc,
		Policy:     policy,
		Audit:      audit,
		Passphrase: s.cfg.CAPassphrase,
		Validity:   s.cfg.CertValidity(),
	}
	s.revoker = &usecase.RevocationManager{
		Certs:       certRepo,
		Revocations: revRepo,
		Cache:       cache,
		Audit:       audit,
	}
	s.responder = &usecase.StatusResponder{
		Certs:       certRepo,
		Revocations: revRepo,
		Keys:        keyRepo,
		KeyManager:  keyManager,
		Cache:       cache,
		Crypto:      cryptoSvc,
		Passphrase:  s.cfg.CAPassphrase,
		Validity:    s.cfg.ResponseValidity(),
	}
	if s.cfg.ProbeBaseURL != "" {
		s.live = &usecase.LiveVerificationService{
			Certs:   certRepo,
			Probe:   probe.NewHTTPProbe(s.cfg.ProbeBaseURL, s.cfg.ProbeTimeout()),
			History: verRepo,
		}
	}
	s.certs = certRepo

	s.initRateLimit(nil)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil)
			if err != nil {
				log.Printf("rate limit: redis limiter at %s unavailable, falling back to per-node limiter: %v", s.cfg.RedisAddr, err)
			} else {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		mode := "no-db"
		if s.store != nil {
			mode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/certificates", s.handleIssue)
		v1.GET("/certificates/:id", s.handleGetCertificate)
		v1.POST("/certificates/:id/revoke", s.handleRevoke)
		v1.GET("/agents/:agent_id/certificates", s.handleListByAgent)
		v1.GET("/orgs/:org_id/certificates", s.handleListByOrg)
		v1.POST("/status", s.handleStatus)
		v1.POST("/verify/live", s.handleLiveVerify)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	if s.initErr != nil {
		return s.initErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.r
}
