package orderkuota

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	loginEndpoint = "https://app.orderkuota.com/api/v2/login"
	mutasiBaseURL = "https://app.orderkuota.com/api/v2/qris/mutasi"
	menuBaseURL   = "https://app.orderkuota.com/api/v2/qris/menu"

	requestTimeout = 30 * time.Second
	maxRetries     = 3
	baseRetryDelay = time.Second
)

// App identity fields the OrderKuota mobile API expects on every call.
var appConstants = map[string]string{
	"app_reg_id":            "e5aCENGrQOWvhQWYnv-uNc:APA91bFj3O_mv5Nf_2SM4Duz4Z8Ug3nBNaHlgodlY92CBuNIA9xmc0Dahev5xxqssPmnTdcie4mlhiG9ZAE1iCe1QbyhxcUyGXlenJxiUaXdfm1rklOEo9k",
	"phone_uuid":            "e5aCENGrQOWvhQWYnv-uNc",
	"phone_model":           "sdk_gphone64_x86_64",
	"phone_android_version": "16",
	"app_version_code":      "250811",
	"app_version_name":      "25.08.11",
	"ui_mode":               "light",
}

// Client talks to the OrderKuota mobile API (login, QRIS mutation
// history, balance). All calls are form-encoded POSTs with the app's
// okhttp identity headers.
type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Mutation is one row of the QRIS mutation history feed. Kredit and
// Debet are rupiah strings with "." as thousands separator.
type Mutation struct {
	ID         json.Number `json:"id"`
	Tanggal    string      `json:"tanggal"`
	Keterangan string      `json:"keterangan"`
	Status     string      `json:"status"` // "IN" for incoming credit
	Kredit     string      `json:"kredit"`
	Debet      string      `json:"debet"`
	SaldoAkhir string      `json:"saldo_akhir"`
	Brand      string      `json:"brand"`
}

// Balance is the account summary from the QRIS menu endpoint.
type Balance struct {
	Balance     int64 `json:"balance"`
	QRISBalance int64 `json:"qris_balance"`
}

// RequestOTP starts a login: OrderKuota sends an OTP to the account's
// registered contact. The raw response is passed through to the caller.
func (c *Client) RequestOTP(ctx context.Context, username, password string) (json.RawMessage, error) {
	form := appForm()
	form.Set("username", username)
	form.Set("password", password)

	return c.postWithRetry(ctx, loginEndpoint, form)
}

// GetToken exchanges the OTP for an auth token. Same endpoint as
// RequestOTP with the OTP in the password field.
func (c *Client) GetToken(ctx context.Context, username, otp string) (json.RawMessage, error) {
	form := appForm()
	form.Set("username", username)
	form.Set("password", otp)

	return c.postWithRetry(ctx, loginEndpoint, form)
}

// GetQRISHistory fetches the merchant's QRIS mutation history. The
// endpoint path embeds the numeric half of the auth token.
func (c *Client) GetQRISHistory(ctx context.Context, username, token string) ([]Mutation, error) {
	form := appForm()
	form.Set("auth_username", username)
	form.Set("auth_token", token)
	form.Set("request_time", fmt.Sprintf("%d", time.Now().UnixMilli()))
	form.Set("requests[0]", "account")
	form.Set("requests[qris_history][keterangan]", "")
	form.Set("requests[qris_history][jumlah]", "")
	form.Set("requests[qris_history][page]", "1")
	form.Set("requests[qris_history][dari_tanggal]", "")
	form.Set("requests[qris_history][ke_tanggal]", "")

	endpoint := fmt.Sprintf("%s/%s", mutasiBaseURL, tokenID(token))
	body, err := c.postWithRetry(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}

	// The feed shows up under qris_history or qris_ajaib_history
	// depending on account type.
	var resp struct {
		QRISHistory struct {
			Results []Mutation `json:"results"`
		} `json:"qris_history"`
		QRISAjaibHistory struct {
			Results []Mutation `json:"results"`
		} `json:"qris_ajaib_history"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse mutation history: %w", err)
	}

	if len(resp.QRISAjaibHistory.Results) > 0 {
		return resp.QRISAjaibHistory.Results, nil
	}
	return resp.QRISHistory.Results, nil
}

// GetBalance returns the account and QRIS balances.
func (c *Client) GetBalance(ctx context.Context, username, token string) (*Balance, error) {
	form := appForm()
	form.Set("auth_username", username)
	form.Set("auth_token", token)
	form.Set("request_time", fmt.Sprintf("%d", time.Now().UnixMilli()))
	form.Set("requests[0]", "account")
	form.Set("requests[1]", "qris_menu")

	endpoint := fmt.Sprintf("%s/%s", menuBaseURL, tokenID(token))
	body, err := c.postWithRetry(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Account struct {
			Results Balance `json:"results"`
		} `json:"account"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse balance response: %w", err)
	}

	return &resp.Account.Results, nil
}

// postWithRetry sends a form POST, retrying transient failures with a
// doubling delay (1s, 2s) between attempts.
func (c *Client) postWithRetry(ctx context.Context, endpoint string, form url.Values) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := c.post(ctx, endpoint, form)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "okhttp/4.12.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("orderkuota returned status %d", resp.StatusCode)
	}

	return body, nil
}

func appForm() url.Values {
	form := url.Values{}
	for k, v := range appConstants {
		form.Set(k, v)
	}
	return form
}

// tokenID is the numeric prefix of an auth token ("12345:abcdef...").
func tokenID(token string) string {
	return strings.SplitN(token, ":", 2)[0]
}
