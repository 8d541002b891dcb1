package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/rookgm/brewtrack/internal/localcache"
	"github.com/spf13/cobra"
)

// CacheOptions selects the local order cache backend
type CacheOptions struct {
	CacheFile string
	RedisAddr string
}

func bindCacheFlags(cmd *cobra.Command, opts *CacheOptions) {
	cmd.Flags().StringVar(&opts.CacheFile, "cache-file", "", "local order cache file")
	cmd.Flags().StringVar(&opts.RedisAddr, "redis-addr", "", "keep local order cache in redis instead of a file")
}

// cache opens the customer's local order cache. The returned func releases it.
func (o *CacheOptions) cache(customer string) (localcache.Cache, func(), error) {
	if o.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: o.RedisAddr})
		return localcache.NewRedisCache(rdb, customer), func() { _ = rdb.Close() }, nil
	}

	path := o.CacheFile
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, nil, fmt.Errorf("locate cache dir: %w", err)
		}
		path = filepath.Join(dir, "brewtrack", customer+".json")
	}
	return localcache.NewFileCache(path), func() {}, nil
}
