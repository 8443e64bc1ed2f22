package s3

import (
	"time"

	"github.com/hupe1980/chunkstore"
	"golang.org/x/time/rate"
)

const (
	// defaultTimeout bounds connect plus read of a single request.
	defaultTimeout = 10 * time.Second

	// defaultPoolSize is the number of idle keep-alive connections the
	// shared transport retains per host.
	defaultPoolSize = 200

	// defaultListMaxKeys is the page size requested when listing chunks.
	defaultListMaxKeys = 100000
)

type options struct {
	timeout      time.Duration
	poolSize     int
	listMaxKeys  int
	token        string
	tokenDecoder TokenDecoder
	accessKey    string
	secretKey    string
	haveCreds    bool
	authorizer   Authorizer
	publicRead   bool
	expiryDays   int
	limiter      *rate.Limiter
	logger       *chunkstore.Logger
	metrics      chunkstore.MetricsCollector
}

// Option configures the store constructor.
type Option func(*options)

// WithTimeout sets the default timeout of a single request, covering
// connection setup and body transfer. A request context with an earlier
// deadline takes precedence. Zero disables the default timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithPoolSize sets the number of idle keep-alive connections retained
// per host.
func WithPoolSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// WithListMaxKeys sets the page size requested when listing chunks.
func WithListMaxKeys(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.listMaxKeys = n
		}
	}
}

// WithBearerToken authenticates requests with the given bearer token.
// The token's claims are decoded at construction time and operations the
// claims cannot authorise fail without a round trip. Mutually exclusive
// with WithCredentials.
func WithBearerToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithTokenDecoder overrides how bearer token claims are extracted. The
// default treats the token as a JWT and decodes it without signature
// verification.
func WithTokenDecoder(decode TokenDecoder) Option {
	return func(o *options) {
		o.tokenDecoder = decode
	}
}

// WithCredentials signs requests with AWS signature version 2 using the
// given key pair. Mutually exclusive with WithBearerToken.
func WithCredentials(accessKey, secretKey string) Option {
	return func(o *options) {
		o.accessKey = accessKey
		o.secretKey = secretKey
		o.haveCreds = true
	}
}

// WithAuthorizer installs a custom Authorizer, overriding the built-in
// bearer and signing schemes.
func WithAuthorizer(a Authorizer) Option {
	return func(o *options) {
		o.authorizer = a
	}
}

// WithPublicRead attaches a policy granting anonymous read access to
// every bucket the store creates.
func WithPublicRead() Option {
	return func(o *options) {
		o.publicRead = true
	}
}

// WithExpiryDays attaches a lifecycle configuration to every bucket the
// store creates, expiring objects after the given number of days.
func WithExpiryDays(days int) Option {
	return func(o *options) {
		o.expiryDays = days
	}
}

// WithRateLimit caps the request rate against the store. burst requests
// may pass at once; further requests wait their turn or fail when their
// context expires first.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(o *options) {
		o.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithLogger configures structured logging for store operations.
func WithLogger(logger *chunkstore.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsCollector configures a metrics collector for store
// operations.
func WithMetricsCollector(mc chunkstore.MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metrics = mc
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		timeout:     defaultTimeout,
		poolSize:    defaultPoolSize,
		listMaxKeys: defaultListMaxKeys,
		logger:      chunkstore.NoopLogger(),
		metrics:     chunkstore.NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
