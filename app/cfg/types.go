package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Scrape source configuration
	SourceURL      string
	SourceSelector string
	SourceConfig   string
	PollInterval   int
	FetchTimeout   int
	FallbackProxy  string

	// Application configuration
	Port            string
	BaseUrl         string
	WorkerCount     int
	APIAccessKey    string
	IncludeExcerpts bool

	// Token configuration
	TokenSecret         string
	VerifyTokenTTL      int
	UnsubscribeTokenTTL int

	// Mail configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	// Bot mitigation configuration
	CaptchaSecret    string
	CaptchaVerifyURL string

	// Trusted sign-in provider configuration
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURL  string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
