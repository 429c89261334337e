package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"voting-client/backend"
	"voting-client/chain"
	"voting-client/service"
	"voting-client/verification"
	"voting-client/wallet"
)

// deviceCounterKey keys the verification attempt counters. Counters belong
// to the device, not to the connected wallet.
const deviceCounterKey = "device"

// Config carries the collaborators the server routes requests to.
type Config struct {
	Provider          *wallet.Provider
	Auth              *backend.Client
	CaptchaVerifier   verification.TokenVerifier
	OpenCampaign      func(address common.Address) (*chain.Campaign, error)
	Directory         *service.DirectoryService
	Detail            *service.DetailService
	Creation          *service.CreationService
	CaptchaCounters   verification.CounterStore
	BiometricCounters verification.CounterStore
	Metrics           *service.Metrics
	Gatherer          prometheus.Gatherer
	Logger            *zerolog.Logger
}

// Server is the local HTTP surface of the voting client. It holds the one
// wallet session and the per-campaign view state the vote flow runs
// through.
type Server struct {
	router *gin.Engine
	cfg    Config
	logger *zerolog.Logger

	mu      sync.Mutex
	session *wallet.Session
	views   map[common.Address]*campaignView
	face    *faceSession
}

// campaignView is the state behind one opened campaign page: the vote gate,
// the live tally and the verification widgets.
type campaignView struct {
	campaign  *chain.Campaign
	gate      *service.VoteGate
	tally     *service.TallySync
	captcha   *verification.CaptchaCheck
	biometric *verification.BiometricCheck
	face      *faceSession
	cancel    context.CancelFunc

	loadedAt     time.Time
	tallyRunning bool
}

// faceSession couples a push-fed frame source with its sampling monitor.
type faceSession struct {
	source  *pushFrameSource
	monitor *verification.Monitor
	cancel  context.CancelFunc
}

// pushFrameSource hands the most recently pushed landmark frame to the
// monitor loop.
type pushFrameSource struct {
	mu    sync.Mutex
	frame verification.LandmarkFrame
	ready bool
}

var errNoFrame = errors.New("no frame pushed yet")

func (p *pushFrameSource) push(frame verification.LandmarkFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame = frame
	p.ready = true
}

func (p *pushFrameSource) Frame(ctx context.Context) (verification.LandmarkFrame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return verification.LandmarkFrame{}, errNoFrame
	}
	return p.frame, nil
}

// NewServer wires the router.
func NewServer(cfg Config) *Server {
	s := &Server{
		router: gin.Default(),
		cfg:    cfg,
		logger: cfg.Logger,
		views:  make(map[common.Address]*campaignView),
	}

	api := s.router.Group("/api")
	s.registerSessionRoutes(api)
	s.registerCampaignRoutes(api)
	s.registerVerificationRoutes(api)

	if cfg.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Voting client API listening")
	return s.router.Run(addr)
}

// Shutdown cancels every running view loop.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, view := range s.views {
		view.cancel()
		delete(s.views, addr)
	}
	if s.face != nil {
		s.face.cancel()
		s.face = nil
	}
}

func (s *Server) registerSessionRoutes(api *gin.RouterGroup) {
	api.POST("/session/connect", s.handleConnect)
	api.POST("/session/register", s.handleRegister)
	api.GET("/session", s.handleSession)
}

func (s *Server) registerCampaignRoutes(api *gin.RouterGroup) {
	api.GET("/campaigns", s.handleListCampaigns)
	api.POST("/campaigns", s.handleCreateCampaign)
	api.POST("/campaigns/:address/open", s.handleOpenCampaign)
	api.DELETE("/campaigns/:address/open", s.handleCloseCampaign)
	api.GET("/campaigns/:address", s.handleCampaignView)
	api.POST("/campaigns/:address/select", s.handleSelectCandidate)
	api.POST("/campaigns/:address/vote", s.handleSubmitVote)
}

func (s *Server) registerVerificationRoutes(api *gin.RouterGroup) {
	api.POST("/face/frame", s.handleRegistrationFrame)
	api.GET("/face/status", s.handleRegistrationFaceStatus)
	api.POST("/campaigns/:address/captcha", s.handleCaptcha)
	api.POST("/campaigns/:address/captcha/reset", s.handleCaptchaReset)
	api.POST("/campaigns/:address/face/frame", s.handleViewFrame)
	api.GET("/campaigns/:address/face/status", s.handleViewFaceStatus)
	api.POST("/campaigns/:address/biometric", s.handleBiometric)
}

func (s *Server) handleConnect(c *gin.Context) {
	if s.cfg.Provider == nil {
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": wallet.ErrNoWallet.Error()})
		return
	}

	accounts := s.cfg.Provider.RequestAccounts()
	if len(accounts) == 0 {
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": wallet.ErrNoAccounts.Error()})
		return
	}

	session := wallet.NewSession(accounts[0])

	profile, err := s.cfg.Auth.Login(c.Request.Context(), session.Address().Hex())
	if err != nil {
		if errors.Is(err, backend.ErrNotRegistered) {
			// The wallet is connected but has no profile. The session stays
			// open so the caller can register.
			s.setSession(session)
			c.JSON(http.StatusNotFound, gin.H{
				"error":      "You are not registered. Please register first.",
				"session_id": session.ID(),
				"address":    session.Address().Hex(),
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	session.SetProfile(profile)
	s.setSession(session)
	s.logger.Info().Str("address", session.Address().Hex()).Msg("Wallet session opened")

	c.JSON(http.StatusOK, ConnectResponse{
		SessionID: session.ID(),
		Address:   session.Address().Hex(),
		Profile:   profile,
	})
}

func (s *Server) handleRegister(c *gin.Context) {
	session, ok := s.currentSession(c)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image := req.BiometricImage
	if image == "" {
		face := s.registrationFace()
		captured, _, capturedOK := face.monitor.Captured()
		if !capturedOK {
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "no face image captured yet"})
			return
		}
		image = captured
	}

	profile, err := s.cfg.Auth.Register(c.Request.Context(), backend.RegisterRequest{
		WalletAddress:  session.Address().Hex(),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		BiometricImage: image,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	session.SetProfile(profile)
	s.logger.Info().Str("address", session.Address().Hex()).Msg("Wallet address registered")

	c.JSON(http.StatusCreated, ConnectResponse{
		SessionID: session.ID(),
		Address:   session.Address().Hex(),
		Profile:   profile,
	})
}

func (s *Server) handleSession(c *gin.Context) {
	session, ok := s.currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ConnectResponse{
		SessionID: session.ID(),
		Address:   session.Address().Hex(),
		Profile:   session.Profile(),
	})
}

func (s *Server) handleListCampaigns(c *gin.Context) {
	summaries, err := s.cfg.Directory.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": summaries})
}

func (s *Server) handleCreateCampaign(c *gin.Context) {
	if _, ok := s.currentSession(c); !ok {
		return
	}

	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.CreationInput{
		Title:          req.Title,
		Description:    req.Description,
		CandidateNames: req.CandidateNames,
	}
	if req.StartDate != "" {
		start, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be RFC 3339"})
			return
		}
		input.StartDate = start
	}
	if req.EndDate != "" {
		end, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be RFC 3339"})
			return
		}
		input.EndDate = end
	}

	address, err := s.cfg.Creation.Create(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, chain.ErrMissingCreationEvent) {
			c.JSON(http.StatusOK, CreateCampaignResponse{
				Warning: "campaign transaction committed but no creation event was found",
			})
			return
		}
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, CreateCampaignResponse{CampaignAddress: address.Hex()})
}

func (s *Server) handleOpenCampaign(c *gin.Context) {
	session, ok := s.currentSession(c)
	if !ok {
		return
	}
	address, ok := campaignAddress(c)
	if !ok {
		return
	}

	s.mu.Lock()
	if view, exists := s.views[address]; exists {
		s.mu.Unlock()
		c.JSON(http.StatusOK, s.viewResponse(view))
		return
	}
	s.mu.Unlock()

	campaign, err := s.cfg.OpenCampaign(address)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	detail, err := s.cfg.Detail.Load(c.Request.Context(), campaign, session.Address())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	view := s.buildView(campaign, detail)

	s.mu.Lock()
	if existing, exists := s.views[address]; exists {
		s.mu.Unlock()
		view.cancel()
		c.JSON(http.StatusOK, s.viewResponse(existing))
		return
	}
	s.views[address] = view
	s.mu.Unlock()

	c.JSON(http.StatusOK, s.viewResponse(view))
}

// buildView assembles the page state and starts its background loops.
func (s *Server) buildView(campaign *chain.Campaign, detail *service.CampaignDetail) *campaignView {
	ctx, cancel := context.WithCancel(context.Background())

	view := &campaignView{
		campaign: campaign,
		gate:     service.NewVoteGate(detail, campaign, s.cfg.Provider, s.logger, s.cfg.Metrics, nil),
		tally:    service.NewTallySync(detail.Campaign, s.logger, s.cfg.Metrics),
		captcha:  verification.NewCaptchaCheck(s.cfg.CaptchaVerifier, s.cfg.CaptchaCounters, deviceCounterKey, 0),
		biometric: verification.NewBiometricCheck(
			s.cfg.Auth, s.cfg.BiometricCounters, deviceCounterKey),
		face:     s.newFaceSession(ctx),
		cancel:   cancel,
		loadedAt: time.Now(),
	}

	if campaign.SupportsWatch() {
		view.tallyRunning = true
		go func() {
			if err := view.tally.Run(ctx, view.campaign); err != nil {
				s.logger.Error().Err(err).
					Str("campaign", detail.Campaign.Address.Hex()).
					Msg("Tally sync terminated")
			}
		}()
	} else {
		s.logger.Warn().
			Str("campaign", detail.Campaign.Address.Hex()).
			Msg("Live tally unavailable without a websocket endpoint")
	}

	return view
}

func (s *Server) newFaceSession(parent context.Context) *faceSession {
	ctx, cancel := context.WithCancel(parent)
	source := &pushFrameSource{}
	monitor := verification.NewMonitor(source, nil, 0, s.logger)
	go monitor.Run(ctx)
	return &faceSession{source: source, monitor: monitor, cancel: cancel}
}

func (s *Server) handleCloseCampaign(c *gin.Context) {
	address, ok := campaignAddress(c)
	if !ok {
		return
	}

	s.mu.Lock()
	view, exists := s.views[address]
	if exists {
		view.cancel()
		delete(s.views, address)
	}
	s.mu.Unlock()

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign view is not open"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCampaignView(c *gin.Context) {
	session, ok := s.currentSession(c)
	if !ok {
		return
	}
	address, ok := campaignAddress(c)
	if !ok {
		return
	}

	if view, exists := s.view(address); exists {
		c.JSON(http.StatusOK, s.viewResponse(view))
		return
	}

	// No open view; serve a one-shot read.
	campaign, err := s.cfg.OpenCampaign(address)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	detail, err := s.cfg.Detail.Load(c.Request.Context(), campaign, session.Address())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, CampaignView{Detail: detail, GateState: service.GateIdle, LoadedAt: time.Now()})
}

func (s *Server) handleSelectCandidate(c *gin.Context) {
	view, ok := s.openView(c)
	if !ok {
		return
	}

	var req SelectCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := view.gate.SelectCandidate(req.CandidateIndex); err != nil {
		status := http.StatusConflict
		if errors.Is(err, service.ErrCandidateOutOfRange) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.viewResponse(view))
}

func (s *Server) handleSubmitVote(c *gin.Context) {
	view, ok := s.openView(c)
	if !ok {
		return
	}

	if err := view.gate.Submit(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionInFlight),
			errors.Is(err, service.ErrSubmissionBlocked),
			errors.Is(err, service.ErrAlreadyVoted):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, s.viewResponse(view))
}

func (s *Server) handleCaptcha(c *gin.Context) {
	view, ok := s.openView(c)
	if !ok {
		return
	}

	var req CaptchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.cfg.Metrics.RecordVerificationAttempt("captcha")

	var verified bool
	var err error
	if req.Expired {
		err = view.captcha.Expire()
	} else {
		verified, err = view.captcha.Submit(c.Request.Context(), req.Token)
	}
	if err != nil && !errors.Is(err, verification.ErrCaptchaLocked) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	view.gate.SetCaptchaVerified(view.captcha.Verified())

	attempts, _ := view.captcha.Attempts()
	locked, _ := view.captcha.Locked()
	status := http.StatusOK
	if errors.Is(err, verification.ErrCaptchaLocked) {
		status = http.StatusLocked
	}
	c.JSON(status, CaptchaResponse{Verified: verified, Attempts: attempts, Locked: locked})
}

func (s *Server) handleCaptchaReset(c *gin.Context) {
	view, ok := s.openView(c)
	if !ok {
		return
	}

	if err := view.captcha.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	view.gate.SetCaptchaVerified(false)
	c.JSON(http.StatusOK, CaptchaResponse{})
}

func (s *Server) handleBiometric(c *gin.Context) {
	session, ok := s.currentSession(c)
	if !ok {
		return
	}
	view, ok := s.openView(c)
	if !ok {
		return
	}

	var req BiometricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image := req.Image
	if image == "" {
		captured, _, capturedOK := view.face.monitor.Captured()
		if !capturedOK {
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "no face image captured yet"})
			return
		}
		image = captured
	}

	s.cfg.Metrics.RecordVerificationAttempt("biometric")

	matched, err := view.biometric.Verify(c.Request.Context(), session.Address().Hex(), image)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	view.gate.SetBiometricVerified(view.biometric.Verified())

	attempts, _ := view.biometric.Attempts()
	resp := BiometricResponse{Verified: matched, Attempts: attempts}
	if result := view.biometric.LastResult(); result != nil {
		resp.SpoofingScore = result.SpoofingScore
		resp.FaceMatchScore = result.FaceMatchScore
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRegistrationFrame(c *gin.Context) {
	s.handleFrame(c, s.registrationFace())
}

func (s *Server) handleRegistrationFaceStatus(c *gin.Context) {
	s.faceStatus(c, s.registrationFace())
}

func (s *Server) handleViewFrame(c *gin.Context) {
	view, ok := s.openView(c)
	if !ok {
		return
	}
	s.handleFrame(c, view.face)
}

func (s *Server) handleViewFaceStatus(c *gin.Context) {
	view, ok := s.openView(c)
	if !ok {
		return
	}
	s.faceStatus(c, view.face)
}

func (s *Server) handleFrame(c *gin.Context, face *faceSession) {
	var req FaceFrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	face.source.push(verification.LandmarkFrame{
		Detected: req.Detected,
		LeftEye:  toPoints(req.LeftEye),
		RightEye: toPoints(req.RightEye),
		Nose:     toPoints(req.Nose),
		Image:    req.Image,
	})

	status, err := face.monitor.Sample(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	_, _, captured := face.monitor.Captured()
	c.JSON(http.StatusOK, FaceStatusResponse{
		Status:   string(status),
		Message:  status.Message(),
		Captured: captured,
	})
}

func (s *Server) faceStatus(c *gin.Context, face *faceSession) {
	status := face.monitor.Status()
	_, _, captured := face.monitor.Captured()
	c.JSON(http.StatusOK, FaceStatusResponse{
		Status:   string(status),
		Message:  status.Message(),
		Captured: captured,
	})
}

// registrationFace lazily starts the registration-scoped face session.
func (s *Server) registrationFace() *faceSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.face == nil {
		s.face = s.newFaceSession(context.Background())
	}
	return s.face
}

func (s *Server) setSession(session *wallet.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

func (s *Server) currentSession(c *gin.Context) (*wallet.Session, bool) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no wallet session; connect first"})
		return nil, false
	}
	return session, true
}

func (s *Server) view(address common.Address) (*campaignView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.views[address]
	return view, ok
}

func (s *Server) openView(c *gin.Context) (*campaignView, bool) {
	address, ok := campaignAddress(c)
	if !ok {
		return nil, false
	}
	view, exists := s.view(address)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign view is not open"})
		return nil, false
	}
	return view, true
}

// viewResponse builds the page payload: the live tally snapshot with the
// status re-derived against the clock, plus the gate position.
func (s *Server) viewResponse(view *campaignView) CampaignView {
	campaign := view.tally.Snapshot()
	detail := &service.CampaignDetail{
		Campaign: campaign,
		Voter:    view.gate.Voter(),
		Status:   campaign.StatusAt(time.Now()),
	}

	resp := CampaignView{
		Detail:       detail,
		GateState:    view.gate.State(),
		CanSubmit:    view.gate.CanSubmit(),
		LastError:    view.gate.LastError(),
		LoadedAt:     view.loadedAt,
		TallyRunning: view.tallyRunning,
	}
	return resp
}

func campaignAddress(c *gin.Context) (common.Address, bool) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign address"})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func toPoints(raw [][2]float64) []verification.Point {
	points := make([]verification.Point, 0, len(raw))
	for _, p := range raw {
		points = append(points, verification.Point{X: p[0], Y: p[1]})
	}
	return points
}

func isValidationError(err error) bool {
	for _, v := range []error{
		service.ErrEmptyTitle,
		service.ErrEmptyDescription,
		service.ErrMissingStartDate,
		service.ErrStartInPast,
		service.ErrMissingEndDate,
		service.ErrEndBeforeStart,
		service.ErrEmptyCandidateName,
		service.ErrTooFewCandidates,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
