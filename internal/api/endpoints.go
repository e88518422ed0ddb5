package api

import (
	"context"
	"net/http"
	"net/url"
)

// Operation names used for logging and metrics.
const (
	OpSystemStats       = "system_stats"
	OpListAccounts      = "list_accounts"
	OpCreateAccount     = "create_account"
	OpDeleteAccount     = "delete_account"
	OpResetAccountStats = "reset_account_stats"
	OpAccountQRCode     = "account_qrcode"
	OpHealth            = "health"
	OpContainerStats    = "container_stats"
	OpServerConfig      = "server_config"
	OpUpdateConfig      = "update_server_config"
)

func userPath(id string, suffix string) string {
	return APIPrefix + "/users/" + url.PathEscape(id) + suffix
}

// SystemStats fetches host resource usage.
func (c *Client) SystemStats(ctx context.Context) (*SystemStats, error) {
	var stats SystemStats
	if err := c.call(ctx, OpSystemStats, http.MethodGet, APIPrefix+"/stats/system", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListAccounts fetches every account in server order.
// A null body decodes to an empty, non-nil slice.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.call(ctx, OpListAccounts, http.MethodGet, APIPrefix+"/users", nil, &accounts); err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []Account{}
	}
	return accounts, nil
}

// CreateAccount provisions a new account. Some backends answer with a bare
// ack instead of the account; the returned Account then only has what the
// server sent.
func (c *Client) CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	var created Account
	if err := c.call(ctx, OpCreateAccount, http.MethodPost, APIPrefix+"/users", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteAccount removes the account with the given id.
func (c *Client) DeleteAccount(ctx context.Context, id string) (*Ack, error) {
	var ack Ack
	if err := c.call(ctx, OpDeleteAccount, http.MethodDelete, userPath(id, ""), nil, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// ResetAccountStats zeroes traffic_used, uplink and downlink server-side.
func (c *Client) ResetAccountStats(ctx context.Context, id string) (*Ack, error) {
	var ack Ack
	if err := c.call(ctx, OpResetAccountStats, http.MethodPost, userPath(id, "/reset-stats"), nil, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// AccountQRCode returns the base64 PNG payload of the account's share link.
func (c *Client) AccountQRCode(ctx context.Context, id string) (string, error) {
	var qr QRCode
	if err := c.call(ctx, OpAccountQRCode, http.MethodGet, userPath(id, "/qrcode"), nil, &qr); err != nil {
		return "", err
	}
	return qr.QRCode, nil
}

// Health checks the backend liveness endpoint (outside /api).
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.call(ctx, OpHealth, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ContainerStats fetches the V2Ray container status.
func (c *Client) ContainerStats(ctx context.Context) (*ContainerStats, error) {
	var cs ContainerStats
	if err := c.call(ctx, OpContainerStats, http.MethodGet, APIPrefix+"/stats/v2ray", nil, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

// ServerConfig fetches the V2Ray configuration document.
func (c *Client) ServerConfig(ctx context.Context) (ServerConfig, error) {
	var cfg ServerConfig
	if err := c.call(ctx, OpServerConfig, http.MethodGet, APIPrefix+"/config", nil, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateServerConfig replaces the V2Ray configuration document.
func (c *Client) UpdateServerConfig(ctx context.Context, cfg ServerConfig) (*Ack, error) {
	var ack Ack
	if err := c.call(ctx, OpUpdateConfig, http.MethodPut, APIPrefix+"/config", serverConfigUpdate{Config: cfg}, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}
