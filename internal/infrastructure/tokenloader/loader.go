package tokenloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wallet_core/internal/domain/entity"
	"wallet_core/internal/pkg/utils"

	"go.uber.org/zap"
)

// TokenFileLoader implements port.TokenProvider over a directory of <network>.json token lists.
// Parsed files are cached per network; Reload drops the cache.
type TokenFileLoader struct {
	tokenDirPath string
	logger       *zap.Logger

	mu     sync.Mutex
	cached map[entity.Network][]entity.TokenInfo
}

// NewTokenLoader creates a loader reading from dir.
func NewTokenLoader(dir string, logger *zap.Logger) *TokenFileLoader {
	return &TokenFileLoader{
		tokenDirPath: dir,
		logger:       logger.Named("TokenFileLoader"),
		cached:       make(map[entity.Network][]entity.TokenInfo),
	}
}

// GetTokensByNetwork returns the tracked tokens of each given network. Tokens whose chain id
// does not match their network are skipped, as are unreadable files.
func (l *TokenFileLoader) GetTokensByNetwork(activeNetworkDefs []entity.NetworkDefinition) (map[entity.Network][]entity.TokenInfo, error) {
	if _, err := os.Stat(l.tokenDirPath); err != nil {
		return nil, fmt.Errorf("failed to read token directory %s: %w", l.tokenDirPath, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tokensByNetwork := make(map[entity.Network][]entity.TokenInfo, len(activeNetworkDefs))
	for _, def := range activeNetworkDefs {
		if tokens, ok := l.cached[def.Identifier]; ok {
			tokensByNetwork[def.Identifier] = tokens
			continue
		}

		tokens, err := l.loadNetwork(def)
		if err != nil {
			l.logger.Warn("Failed to load token file, skipping network", zap.String("network", string(def.Identifier)), zap.Error(err))
			continue
		}
		l.cached[def.Identifier] = tokens
		tokensByNetwork[def.Identifier] = tokens
	}
	return tokensByNetwork, nil
}

// Reload drops cached token lists so the next call re-reads the files.
func (l *TokenFileLoader) Reload() {
	l.mu.Lock()
	l.cached = make(map[entity.Network][]entity.TokenInfo)
	l.mu.Unlock()
}

func (l *TokenFileLoader) loadNetwork(def entity.NetworkDefinition) ([]entity.TokenInfo, error) {
	path := filepath.Join(l.tokenDirPath, strings.ToLower(string(def.Identifier))+".json")
	tokensInFile, err := utils.LoadTokensFromJSON(path)
	if os.IsNotExist(err) {
		return []entity.TokenInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	valid := make([]entity.TokenInfo, 0, len(tokensInFile))
	for _, token := range tokensInFile {
		if token.ChainID != def.ChainID {
			l.logger.Warn("Token has mismatched ChainID in file, skipping token.",
				zap.String("file", path),
				zap.String("symbol", token.Symbol),
				zap.Uint64("tokenChainId", token.ChainID),
				zap.Uint64("expectedChainId", def.ChainID))
			continue
		}
		valid = append(valid, token)
	}
	l.logger.Info("Loaded tokens for network", zap.String("network", string(def.Identifier)), zap.Int("count", len(valid)))
	return valid, nil
}
