package app

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fxawebapp/fxa-front/internal/assertion"
	"github.com/fxawebapp/fxa-front/internal/broker"
	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/config"
	"github.com/fxawebapp/fxa-front/internal/fxa"
	"github.com/fxawebapp/fxa-front/internal/log"
	"github.com/fxawebapp/fxa-front/internal/marketing"
	"github.com/fxawebapp/fxa-front/internal/metrics"
	"github.com/fxawebapp/fxa-front/internal/oauthclient"
	"github.com/fxawebapp/fxa-front/internal/profile"
	"github.com/fxawebapp/fxa-front/internal/relier"
	"github.com/fxawebapp/fxa-front/internal/router"
	"github.com/fxawebapp/fxa-front/internal/session"
	"github.com/fxawebapp/fxa-front/internal/storage"
	"github.com/fxawebapp/fxa-front/internal/user"
	"github.com/fxawebapp/fxa-front/internal/verification"
)

// failureFlushDelay gives async error and metrics reporting time to settle
// before the browser is navigated away.
const failureFlushDelay = 1000 * time.Millisecond

// Start runs the bootstrap for page loads. One Start serves many loads; the
// per-load state lives in the bootstrap value threaded through the steps.
type Start struct {
	cfg           *config.Config
	store         storage.Store
	session       *session.Session
	verifications *verification.Store

	// flushDelay is the failure-path settle delay; tests shrink it.
	flushDelay time.Duration
}

func NewStart(cfg *config.Config, store storage.Store, sess *session.Session, verifications *verification.Store) *Start {
	return &Start{
		cfg:           cfg,
		store:         store,
		session:       sess,
		verifications: verifications,
		flushDelay:    failureFlushDelay,
	}
}

// Result is what a successful bootstrap hands the page: the initial route,
// the navigation mode, and what was selected along the way.
type Result struct {
	Route           router.Route
	Mode            router.NavigationMode
	BrokerType      broker.Type
	Language        string
	ShowCloseButton bool

	// ForcedStartPage is set when the session must start somewhere other
	// than the requested path.
	ForcedStartPage string
}

// bootstrap is the typed per-load state. Each step only reads fields that
// earlier steps wrote; the order in steps() is a correctness contract.
type bootstrap struct {
	env   Environment
	query url.Values

	language     string
	clientConfig config.ClientConfig
	interTab     *channel.InterTabChannel

	sentrySampled bool
	errorSink     *errorSink

	oauthClient *oauthclient.Client

	relier      *relier.Relier
	syncRelier  *relier.SyncRelier
	oauthRelier *relier.OAuthRelier

	metrics         *metrics.Metrics
	iframeChannel   channel.Channel
	fxaClient       *fxa.Client
	notifier        *channel.Notifier
	signer          *assertion.Signer
	profileClient   *profile.Client
	marketingClient *marketing.Client
	user            *user.User

	broker          broker.Broker
	heightObserver  *router.HeightObserver
	showCloseButton bool
	formPrefill     *router.FormPrefill
	refresh         *router.RefreshObserver
	router          *router.Router

	result *Result
}

type step struct {
	name string
	run  func(context.Context, *bootstrap) error
}

// StartApp bootstraps one page load. On failure the error is reported,
// metrics are flushed, and the browser is hard-navigated to an error page;
// the error is also returned so servers can log it.
func (s *Start) StartApp(ctx context.Context, env Environment) (*Result, error) {
	b := &bootstrap{
		env:   env,
		query: env.URL().Query(),
	}

	if err := s.parallelPhase(ctx, b); err != nil {
		s.fail(ctx, b, err)
		return nil, err
	}

	for _, st := range s.steps() {
		if err := st.run(ctx, b); err != nil {
			s.fail(ctx, b, fmt.Errorf("%s: %w", st.name, err))
			return nil, err
		}
	}
	return b.result, nil
}

// parallelPhase fetches what has no ordering dependencies: the client
// config, the negotiated language, and the inter-tab channel.
func (s *Start) parallelPhase(ctx context.Context, b *bootstrap) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.language = s.cfg.NegotiateLanguage(b.env.AcceptLanguage())
		return nil
	})
	g.Go(func() error {
		b.clientConfig = s.cfg.ClientConfig(s.cfg.DefaultLanguage, b.env.StorageUsable())
		return nil
	})
	g.Go(func() error {
		b.interTab = channel.NewInterTabChannel()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	b.clientConfig.Language = b.language
	return nil
}

func (s *Start) steps() []step {
	return []step{
		{"config", s.checkConfig},
		{"experiments", s.chooseBuckets},
		{"error-sink", s.initErrorSink},
		{"oauth-client", s.initOAuthClient},
		{"relier", s.initRelier},
		{"metrics", s.initMetrics},
		{"iframe-channel", s.initIframeChannel},
		{"fxa-client", s.initFxaClient},
		{"notifier", s.initNotifier},
		{"assertion", s.initAssertion},
		{"profile-client", s.initProfileClient},
		{"marketing-client", s.initMarketingClient},
		{"user", s.initUser},
		{"broker", s.initBroker},
		{"height-observer", s.initHeightObserver},
		{"close-button", s.initCloseButton},
		{"storage-upgrade", s.upgradeStorage},
		{"form-prefill", s.initFormPrefill},
		{"refresh-observer", s.initRefreshObserver},
		{"router", s.initRouter},
		{"app-view", s.initAppView},
	}
}

func (s *Start) checkConfig(ctx context.Context, b *bootstrap) error {
	if b.clientConfig.AuthServerURL == "" {
		return fmt.Errorf("config has no auth server URL")
	}
	return nil
}

// chooseBuckets makes the sampling decisions that downstream steps read.
func (s *Start) chooseBuckets(ctx context.Context, b *bootstrap) error {
	b.sentrySampled = rand.Float64() < s.cfg.SentrySampleRate
	return nil
}

func (s *Start) initErrorSink(ctx context.Context, b *bootstrap) error {
	if b.sentrySampled {
		b.errorSink = newErrorSink()
	}
	return nil
}

func (s *Start) initOAuthClient(ctx context.Context, b *bootstrap) error {
	b.oauthClient = oauthclient.New(b.clientConfig.OAuthURL)
	return nil
}

// initRelier picks the relier variant by context detection and fetches it.
// The base relier pointer is always set so later steps need not care which
// variant won.
func (s *Start) initRelier(ctx context.Context, b *bootstrap) error {
	query := b.query

	switch {
	case s.isSyncLoad(query):
		sync := relier.NewSync(query)
		if err := sync.Fetch(ctx); err != nil {
			return err
		}
		b.syncRelier = sync
		b.relier = &sync.Relier
	case s.isOAuthLoad(query, b.env):
		oauth := relier.NewOAuth(query, b.oauthClient, s.savedClientID(query))
		if err := oauth.Fetch(ctx); err != nil {
			return err
		}
		b.oauthRelier = oauth
		b.relier = &oauth.Relier
	default:
		base := relier.New(query)
		if err := base.Fetch(ctx); err != nil {
			return err
		}
		b.relier = base
	}
	return nil
}

func (s *Start) isSyncLoad(query url.Values) bool {
	if query.Get("service") == relier.ServiceSync {
		return true
	}
	context := query.Get("context")
	return slices.Contains([]string{
		relier.ContextFxDesktopV1,
		relier.ContextFxDesktopV2,
		relier.ContextFxFennecV1,
		relier.ContextFxIOSV1,
		relier.ContextFxIOSV2,
	}, context)
}

// savedClientID recovers the client id the originating tab recorded, from
// the verification context when one exists, else the legacy session.
func (s *Start) savedClientID(query url.Values) string {
	if relier.IsVerificationFlow(query) && s.verifications != nil {
		if vc := s.verifications.Load(query.Get("email"), query.Get("uid")); vc != nil && vc.ClientID != "" {
			return vc.ClientID
		}
	}
	return s.session.SavedClientID()
}

func (s *Start) isOAuthLoad(query url.Values, env Environment) bool {
	if query.Get("client_id") != "" || query.Get("webChannelId") != "" {
		return true
	}
	if relier.IsVerificationFlow(query) {
		service := query.Get("service")
		return service != "" && service != relier.ServiceSync
	}
	return false
}

func (s *Start) initMetrics(ctx context.Context, b *bootstrap) error {
	m := metrics.New(s.cfg.MetricsSampleRate, b.language)
	m.Campaign = b.relier.Campaign
	m.Entrypoint = b.relier.Entrypoint
	m.Service = b.relier.Service
	m.Context = b.relier.Context
	m.UTMSource = b.relier.UTMSource
	m.UTMMedium = b.relier.UTMMedium
	b.metrics = m
	return nil
}

// initIframeChannel resolves the allowed parent origins and challenges the
// actual parent. Not framed short-circuits to a NullChannel; a parent
// outside the allow-list aborts bootstrap.
func (s *Start) initIframeChannel(ctx context.Context, b *bootstrap) error {
	if !b.env.Framed() {
		b.iframeChannel = channel.NewNullChannel()
		return nil
	}

	policy := channel.OriginPolicy{
		Framed:        true,
		ForSync:       b.syncRelier != nil,
		ForOAuth:      b.oauthRelier != nil,
		SyncAllowList: s.cfg.AllowedParentOrigins,
	}
	if b.oauthRelier != nil {
		policy.RelierOrigin = b.oauthRelier.Origin
	}

	ch, err := channel.NewIframeChannel(
		b.env.ParentTransport(),
		b.env.ParentOrigin(),
		channel.AllowedParentOrigins(policy),
		s.cfg.ChannelRequestTimeout,
	)
	if err != nil {
		return err
	}
	b.iframeChannel = ch
	return nil
}

func (s *Start) initFxaClient(ctx context.Context, b *bootstrap) error {
	b.fxaClient = fxa.New(b.clientConfig.AuthServerURL, b.interTab)
	return nil
}

func (s *Start) initNotifier(ctx context.Context, b *bootstrap) error {
	// Account-update broadcasts ride a dedicated WebChannel.
	broadcast := b.env.ChromeChannel("account_updates")
	b.notifier = channel.NewNotifier(b.iframeChannel, b.interTab, broadcast)
	return nil
}

func (s *Start) initAssertion(ctx context.Context, b *bootstrap) error {
	b.signer = assertion.New(assertion.DefaultLifetime)
	return nil
}

func (s *Start) initProfileClient(ctx context.Context, b *bootstrap) error {
	b.profileClient = profile.New(b.clientConfig.ProfileURL)
	return nil
}

func (s *Start) initMarketingClient(ctx context.Context, b *bootstrap) error {
	b.marketingClient = marketing.New(b.clientConfig.MarketingEmailServerURL)
	return nil
}

func (s *Start) initUser(ctx context.Context, b *bootstrap) error {
	b.user = user.New(
		s.store,
		b.profileClient,
		b.oauthClient,
		b.signer,
		b.notifier,
		b.clientConfig.OAuthClientID,
		b.clientConfig.OAuthURL,
	)
	return nil
}

// initBroker selects the variant from the bootstrap signal and constructs
// it. Selection is pure; everything environmental was gathered beforehand.
func (s *Start) initBroker(ctx context.Context, b *bootstrap) error {
	signal := s.buildSignal(b)
	typ := broker.Select(signal)

	chrome := b.env.ChromeChannel(signal.WebChannelID)
	deps := broker.Deps{
		User:          b.user,
		Relier:        b.relier,
		Sync:          b.syncRelier,
		OAuth:         b.oauthRelier,
		Client:        b.fxaClient,
		Signer:        b.signer,
		Metrics:       b.metrics,
		Channel:       chrome,
		IframeChannel: b.iframeChannel,
		OAuthClient:   b.oauthClient,
		Audience:      b.clientConfig.OAuthURL,
		Navigate:      b.env.Navigate,
	}
	if typ == broker.TypeIframe {
		deps.Channel = b.iframeChannel
	}

	selected, err := broker.New(typ, deps)
	if err != nil {
		return err
	}
	b.broker = selected
	b.metrics.SetBrokerType(string(typ))
	log.LogInfoWithFields("bootstrap", "Selected authentication broker", map[string]any{
		"broker": string(typ),
	})
	return nil
}

func (s *Start) buildSignal(b *bootstrap) broker.Signal {
	signal := broker.Signal{
		Context:        b.query.Get("context"),
		Service:        b.query.Get("service"),
		ClientID:       b.query.Get("client_id"),
		WebChannelID:   b.query.Get("webChannelId"),
		Framed:         b.env.Framed(),
		Href:           b.env.URL().String(),
		IsVerification: relier.IsVerificationFlow(b.query),
	}

	if signal.IsVerification && s.verifications != nil {
		if vc := s.verifications.Load(b.query.Get("email"), b.query.Get("uid")); vc != nil {
			signal.SavedClientID = vc.ClientID
			signal.SavedWebChannelID = vc.WebChannelID
		}
	}
	if signal.SavedClientID == "" {
		signal.SavedClientID = s.session.SavedClientID()
		if oauth := s.session.OAuth(); oauth != nil {
			signal.SavedWebChannelID = oauth.WebChannelID
		}
	}
	return signal
}

func (s *Start) initHeightObserver(ctx context.Context, b *bootstrap) error {
	b.heightObserver = router.NewHeightObserver(b.iframeChannel, b.env.Framed())
	return nil
}

func (s *Start) initCloseButton(ctx context.Context, b *bootstrap) error {
	b.showCloseButton = b.broker.CanCancel()
	return nil
}

// upgradeStorage brings the account store to the current schema and runs
// the one-shot legacy session migration.
func (s *Start) upgradeStorage(ctx context.Context, b *bootstrap) error {
	if err := b.user.UpgradeStorageFormat(ctx); err != nil {
		return err
	}
	return b.user.UpgradeFromSession(ctx, s.session)
}

func (s *Start) initFormPrefill(ctx context.Context, b *bootstrap) error {
	b.formPrefill = router.NewFormPrefill()
	return nil
}

func (s *Start) initRefreshObserver(ctx context.Context, b *bootstrap) error {
	b.refresh = router.NewRefreshObserver(b.metrics)
	return nil
}

func (s *Start) initRouter(ctx context.Context, b *bootstrap) error {
	b.router = router.New(b.user, b.metrics, b.refresh, b.env.Framed(), b.env.StorageUsable(), nil)
	return nil
}

// initAppView resolves the initial route and finalizes what the page gets:
// the Go rendition of mounting the app view and starting history.
func (s *Start) initAppView(ctx context.Context, b *bootstrap) error {
	requested := b.env.URL().Path
	route, err := b.router.InitialRoute(ctx, requested)
	if err != nil {
		return err
	}
	b.router.Start(requested)
	if err := b.broker.AfterLoaded(ctx); err != nil {
		return err
	}

	b.result = &Result{
		Route:           route,
		Mode:            b.router.Mode(),
		BrokerType:      b.broker.Type(),
		Language:        b.language,
		ShowCloseButton: b.showCloseButton,
		ForcedStartPage: b.router.ForcedStartPage(requested),
	}
	return nil
}

// fail runs the single top-level failure path: report, log to metrics, let
// async reporting settle, flush, and hard-navigate to the error page.
func (s *Start) fail(ctx context.Context, b *bootstrap, err error) {
	if b.errorSink == nil {
		b.errorSink = newErrorSink()
	}
	b.errorSink.Report(err)

	if b.metrics != nil {
		b.metrics.LogError(err)
	}

	time.Sleep(s.flushDelay)

	if b.metrics != nil {
		b.metrics.Flush(ctx)
	}

	target := errorPageURL(err)
	if navErr := b.env.Navigate(target); navErr != nil {
		log.LogErrorWithFields("bootstrap", "Error page navigation failed", map[string]any{
			"target": target,
			"error":  navErr.Error(),
		})
	}
}
