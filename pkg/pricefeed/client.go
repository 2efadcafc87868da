package pricefeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config 行情服务配置
type Config struct {
	BaseURL   string
	APIKey    string
	RateLimit int // 每分钟请求次数
	Timeout   int // 秒
}

type priceResp struct {
	TokenAddress string          `json:"token_address"`
	UsdPrice     decimal.Decimal `json:"usd_price"`
	ChainID      uint64          `json:"chain_id"`
}

// Client 代币行情客户端，用于换算交易的最小可接受产出
type Client struct {
	baseURL string
	client  *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 60
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rateLimit)/60), 1)

	restyClient := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
			limiterCtx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			if err := limiter.Wait(limiterCtx); err != nil {
				logger.Warn("Rate limiter wait failed", zap.Error(err))
				return err
			}
			if cfg.APIKey != "" {
				r.SetHeader("X-API-Key", cfg.APIKey)
			}
			logger.Debug("Outgoing request", zap.String("url", r.URL))
			return nil
		}).
		AddResponseMiddleware(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				logger.Warn("HTTP request failed",
					zap.Int("status", resp.StatusCode()),
					zap.String("url", resp.Request.URL),
				)
			}
			return nil
		})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  restyClient,
		limiter: limiter,
		logger:  logger,
	}
}

// TokenPrice 查询代币美元价格
func (c *Client) TokenPrice(ctx context.Context, chainID uint64, tokenAddress string) (decimal.Decimal, error) {
	var out priceResp
	url := fmt.Sprintf("%s/api/v1/erc20/%s/price", c.baseURL, strings.ToLower(tokenAddress))

	var err error
	for range 5 {
		var resp *resty.Response
		resp, err = c.client.R().
			SetContext(ctx).
			SetQueryParam("chain_id", fmt.Sprintf("%d", chainID)).
			SetResult(&out).
			Get(url)
		if err == nil && resp.StatusCode() < 400 {
			return out.UsdPrice, nil
		}
		if err == nil {
			err = fmt.Errorf("non-2xx status code: %d", resp.StatusCode())
		}
		time.Sleep(10 * time.Millisecond)
	}
	return decimal.Zero, fmt.Errorf("fetch token price failed, url: %s, error: %v", url, err)
}
