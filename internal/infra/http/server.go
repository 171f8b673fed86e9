package http

import (
	"context"
	"log"
	"time"

	"agora/internal/config"
	"agora/internal/domain"
	"agora/internal/infra/db"
	"agora/internal/infra/memstore"
	"agora/internal/infra/policyopa"
	"agora/internal/infra/ratelimit"
	"agora/internal/infra/sessionredis"
	"agora/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine

	registry domain.ParticipantRegistry
	budget   *usecase.BudgetService
	register *usecase.RegisterParticipant
	policy   domain.PolicyEngine

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool

	timestampTolerance time.Duration
	now                func() time.Time
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:                 cfg,
		r:                   r,
		rateLimitRequests:   cfg.RateLimitRequests,
		rateLimitWindow:     cfg.RateLimitWindow(),
		rateLimitFailClosed: cfg.RateLimitFailClosed,
		timestampTolerance:  cfg.TimestampTolerance(),
		now:                 time.Now,
	}
	s.initDeps(store)
	s.routes()
	return s
}

// ServerDeps lets tests and alternate wiring inject collaborators directly.
type ServerDeps struct {
	Registry    domain.ParticipantRegistry
	Sessions    domain.SessionStore
	Policy      domain.PolicyEngine
	RateLimiter domain.RateLimiter
	Now         func() time.Time
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		cfg:                 cfg,
		r:                   r,
		registry:            deps.Registry,
		policy:              deps.Policy,
		rateLimiter:         deps.RateLimiter,
		rateLimitRequests:   cfg.RateLimitRequests,
		rateLimitWindow:     cfg.RateLimitWindow(),
		rateLimitFailClosed: cfg.RateLimitFailClosed,
		timestampTolerance:  cfg.TimestampTolerance(),
		now:                 now,
	}
	if deps.Registry != nil && deps.Sessions != nil {
		s.budget = usecase.NewBudgetService(deps.Sessions, deps.Registry, cfg.SessionTTL(), cfg.DefaultMaxQueries, db.NewUUID)
		s.budget.Now = now
		s.register = usecase.NewRegisterParticipant(deps.Registry, cfg.DefaultMaxQueries)
		s.register.Now = now
	}
	s.routes()
	return s
}

func (s *Server) initDeps(store *db.Store) {
	var sessions domain.SessionStore

	if store != nil && store.DB != nil {
		s.registry = db.NewParticipantRepository(store.DB)
		sessions = db.NewSessionRepository(store.DB)
	} else {
		s.registry = memstore.NewParticipantRegistry()
		sessions = memstore.NewSessionStore()
	}

	if s.cfg.SessionBackend == "redis" && s.cfg.RedisAddr != "" {
		redisSessions, err := sessionredis.New(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB)
		if err != nil {
			log.Printf("redis session store unavailable, keeping default backend: %v", err)
		} else {
			sessions = redisSessions
		}
	}

	s.budget = usecase.NewBudgetService(sessions, s.registry, s.cfg.SessionTTL(), s.cfg.DefaultMaxQueries, db.NewUUID)
	s.register = usecase.NewRegisterParticipant(s.registry, s.cfg.DefaultMaxQueries)

	if s.rateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil)
			if err != nil {
				log.Printf("redis rate limiter unavailable, falling back to memory: %v", err)
				s.rateLimiter = ratelimit.NewMemoryLimiter(s.cfg.RateLimitMaxKeys, nil)
			} else {
				s.rateLimiter = limiter
			}
		} else {
			s.rateLimiter = ratelimit.NewMemoryLimiter(s.cfg.RateLimitMaxKeys, nil)
		}
	}

	var (
		engine *policyopa.Engine
		err    error
	)
	if s.cfg.PolicyPath != "" {
		engine, err = policyopa.NewEngineFromPath(context.Background(), s.cfg.PolicyPath)
	} else {
		engine, err = policyopa.NewEngine(context.Background())
	}
	if err != nil {
		log.Printf("policy engine init failed, domain access checks disabled: %v", err)
		return
	}
	s.policy = engine
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/participants/register", s.handleRegister)
		v1.GET("/participants/:id", s.handleGetParticipant)

		v1.GET("/budget/:domain", s.handleBudget)
		v1.POST("/queries", s.handleQuery)

		v1.POST("/promises", s.handlePromise)
		v1.POST("/promises/:id/status", s.handlePromiseStatus)
		v1.POST("/assessments", s.handleAssessment)
		v1.POST("/terms", s.handleTerms)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() *gin.Engine {
	return s.r
}
