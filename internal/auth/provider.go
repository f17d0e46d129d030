package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ProviderConfig はProviderの設定。
type ProviderConfig struct {
	CacheSize   int           // 保持するContextの最大数
	CacheTTL    time.Duration // 最後に払い出してから破棄するまでの時間
	EmailDomain string        // プロフィール補完に使うドメイン
}

// Provider はブラウザIDごとにContextを1つ払い出すレジストリ。
// Contextは期限付きLRUで保持し、リクエストをまたいで購読者を維持する。
type Provider struct {
	store       SessionStore
	emailDomain string

	mu    sync.Mutex
	cache *expirable.LRU[string, *Context]
}

// NewProvider はProviderを生成する。
func NewProvider(store SessionStore, cfg ProviderConfig) *Provider {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	return &Provider{
		store:       store,
		emailDomain: cfg.EmailDomain,
		cache: expirable.NewLRU[string, *Context](cfg.CacheSize, func(_ string, c *Context) {
			c.release()
		}, cfg.CacheTTL),
	}
}

// Get はブラウザIDに対応するContextを返す。初回はストアから状態を復元する。
func (p *Provider) Get(ctx context.Context, browserID string) *Context {
	p.mu.Lock()
	c, ok := p.cache.Get(browserID)
	if !ok {
		c = NewContext(browserID, p.store, p.emailDomain)
		p.cache.Add(browserID, c)
	}
	p.mu.Unlock()

	c.Init(ctx)
	return c
}

// Forget はブラウザIDのContextを破棄する。永続化された状態には触れない。
func (p *Provider) Forget(browserID string) {
	p.cache.Remove(browserID)
}

// Len は保持しているContextの数を返す。
func (p *Provider) Len() int {
	return p.cache.Len()
}
