package yale

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Panel modes understood by the API.
const (
	ModeArmFull    = "arm"
	ModeArmPartial = "home"
	ModeDisarm     = "disarm"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://mob.yalehomesystem.co.uk/yapi"
	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 10 * time.Second

	tokenPath     = "o/token/"
	panelModePath = "api/panel/mode/"

	defaultArea = "1"
)

var (
	errEmptyToken         = errors.New("token response carries no access token")
	errNoClientCredential = errors.New("client credential is not set")
	errNoMode     = errors.New("panel mode response carries no mode")
)

// Client talks to the Yale Smart Alarm cloud API.
// It is safe for concurrent use.
type Client struct {
	// baseURL is the API root every path is joined to.
	baseURL *url.URL
	// username and password are the account credentials.
	username string
	password string
	// httpClient performs the requests.
	httpClient *http.Client
	// userAgent is sent with every request when set.
	userAgent string
	// clientCredential is the base64 Basic credential sent to the token endpoint.
	clientCredential string

	// mu guards token.
	mu sync.Mutex
	// token is the current bearer token, empty until the first login.
	token string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithClientCredential sets the base64 encoded "id:secret" pair the token
// endpoint expects as Basic authorization. Login fails without it.
func WithClientCredential(credential string) Option {
	return func(c *Client) {
		c.clientCredential = credential
	}
}

// New creates a client. It does not contact the API; the first call logs in.
func New(baseURL, username, password string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	client := &Client{
		baseURL:    parsed,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type apiResponse struct {
	Result  bool            `json:"result"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type modeData struct {
	Area string `json:"area"`
	Mode string `json:"mode"`
}

// Login exchanges the credentials for a bearer token.
func (c *Client) Login() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loginLocked()
}

func (c *Client) loginLocked() error {
	if c.clientCredential == "" {
		return newError(KindAuthentication, eris.Wrap(errNoClientCredential, "login failed"))
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequest(http.MethodPost, c.endpoint(tokenPath), strings.NewReader(form.Encode()))
	if err != nil {
		return newError(KindUnknown, eris.Wrap(err, "failed to create token request"))
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+c.clientCredential)
	c.setUserAgent(req)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return newError(KindConnection, eris.Wrap(err, "failed to request token"))
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return newError(KindConnection, eris.Wrap(err, "failed to read token response"))
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusBadRequest:
		return newError(KindAuthentication, eris.Errorf("login refused with http status %d", res.StatusCode))
	case res.StatusCode != http.StatusOK:
		return newError(statusKind(res.StatusCode), eris.Errorf("login failed with http status %d", res.StatusCode))
	}

	var token tokenResponse
	if err = json.Unmarshal(body, &token); err != nil {
		return newError(KindUnknown, eris.Wrap(err, "failed to parse token response"))
	}

	if token.AccessToken == "" {
		return newError(KindAuthentication, eris.Wrap(errEmptyToken, "login failed"))
	}

	c.token = token.AccessToken

	return nil
}

// GetStatus returns the current panel mode keyword.
func (c *Client) GetStatus() (string, error) {
	response, err := c.call(http.MethodGet, panelModePath, nil)
	if err != nil {
		return "", err
	}

	var modes []modeData
	if err = json.Unmarshal(response.Data, &modes); err != nil {
		return "", newError(KindUnknown, eris.Wrap(err, "failed to parse panel mode"))
	}

	if len(modes) == 0 || modes[0].Mode == "" {
		return "", newError(KindUnknown, eris.Wrap(errNoMode, "failed to read panel mode"))
	}

	return modes[0].Mode, nil
}

// ArmFull arms the panel in away mode.
func (c *Client) ArmFull() (bool, error) {
	return c.setMode(ModeArmFull)
}

// ArmPartial arms the panel in home mode.
func (c *Client) ArmPartial() (bool, error) {
	return c.setMode(ModeArmPartial)
}

// Disarm disarms the panel.
func (c *Client) Disarm() (bool, error) {
	return c.setMode(ModeDisarm)
}

func (c *Client) setMode(mode string) (bool, error) {
	form := url.Values{}
	form.Set("area", defaultArea)
	form.Set("mode", mode)

	response, err := c.call(http.MethodPost, panelModePath, form)
	if err != nil {
		return false, err
	}

	return response.Result, nil
}

// call performs an authenticated request, logging in first when there is no
// token and once more when the token is rejected.
func (c *Client) call(method, path string, form url.Values) (*apiResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		if err := c.loginLocked(); err != nil {
			return nil, err
		}
	}

	response, status, err := c.do(method, path, form)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		c.token = ""

		if err = c.loginLocked(); err != nil {
			return nil, err
		}

		response, status, err = c.do(method, path, form)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, newError(KindAuthentication, eris.Errorf("%s %s: token rejected", method, path))
	case status != http.StatusOK:
		return nil, newError(statusKind(status), eris.Errorf("%s %s: http error code %d", method, path, status))
	}

	return response, nil
}

func (c *Client) do(method, path string, form url.Values) (*apiResponse, int, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequest(method, c.endpoint(path), body)
	if err != nil {
		return nil, 0, newError(KindUnknown, eris.Wrapf(err, "failed to create %s request", path))
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	c.setUserAgent(req)

	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, newError(KindConnection, eris.Wrapf(err, "failed to call %s", path))
	}

	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, newError(KindConnection, eris.Wrapf(err, "failed to read %s response", path))
	}

	if res.StatusCode != http.StatusOK {
		return nil, res.StatusCode, nil
	}

	var response apiResponse
	if err = json.Unmarshal(payload, &response); err != nil {
		return nil, 0, newError(KindUnknown, eris.Wrapf(err, "failed to parse %s response", path))
	}

	return &response, res.StatusCode, nil
}

func (c *Client) setUserAgent(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

// statusKind treats gateway and server failures as connectivity problems.
func statusKind(status int) Kind {
	if status >= http.StatusInternalServerError {
		return KindConnection
	}

	return KindUnknown
}
