package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"

	"go.uber.org/zap"
)

// ConnectionSnapshot is the observable state of the connection store.
type ConnectionSnapshot struct {
	Connections []entity.WalletConnection
	Active      *entity.WalletConnection
}

// ConnectionStore owns the set of wallet connections and the active selection.
// Mutations go to the backend first; local state changes only after the backend succeeds.
type ConnectionStore struct {
	backend port.ConnectionBackend
	clients port.ChainClientProvider
	logger  *zap.Logger

	mu          sync.RWMutex
	connections []entity.WalletConnection
	selectedID  string

	obsMu     sync.Mutex
	observers map[int]func(ConnectionSnapshot)
	nextObsID int
}

// NewConnectionStore creates an empty store. Call Load to populate it from the backend.
func NewConnectionStore(backend port.ConnectionBackend, clients port.ChainClientProvider, logger *zap.Logger) *ConnectionStore {
	return &ConnectionStore{
		backend:   backend,
		clients:   clients,
		logger:    logger.Named("ConnectionStore"),
		observers: make(map[int]func(ConnectionSnapshot)),
	}
}

// Load replaces the local connection list with the backend's.
func (s *ConnectionStore) Load(ctx context.Context) error {
	conns, err := s.backend.ListConnections(ctx)
	if err != nil {
		s.logger.Error("Failed to load wallet connections", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.connections = append([]entity.WalletConnection(nil), conns...)
	if _, ok := s.indexOf(s.selectedID); !ok {
		s.selectedID = ""
	}
	s.mu.Unlock()

	s.logger.Info("Loaded wallet connections", zap.Int("count", len(conns)))
	s.notify()
	return nil
}

// Connect performs the provider handshake, registers the resulting address with the backend
// and adds the connection locally.
func (s *ConnectionStore) Connect(ctx context.Context, provider entity.ProviderKind, network entity.Network, name string, perms entity.Permissions) (entity.WalletConnection, error) {
	const op = "ConnectionStore.Connect"
	if !provider.Valid() {
		return entity.WalletConnection{}, entity.NewError(entity.KindInvalidInput, op, "unknown provider "+string(provider), nil)
	}
	if network == "" {
		return entity.WalletConnection{}, entity.NewError(entity.KindInvalidInput, op, "network is required", nil)
	}

	address, err := s.handshake(ctx, provider, network)
	if err != nil {
		s.logger.Warn("Wallet handshake failed",
			zap.String("provider", string(provider)),
			zap.String("network", string(network)),
			zap.Error(err))
		return entity.WalletConnection{}, err
	}

	if name == "" {
		name = defaultDisplayName(provider, address)
	}
	if !perms.CanView && !perms.CanTrade && len(perms.AllowedContracts) == 0 && perms.TradeLimit == nil {
		perms = entity.Permissions{CanView: true}
	}

	conn, err := s.backend.RegisterConnection(ctx, entity.ConnectionRequest{
		ProviderKind: provider,
		ChainAddress: address,
		DisplayName:  name,
		Network:      network,
		Permissions:  perms,
	})
	if err != nil {
		s.logger.Error("Failed to register wallet connection", zap.String("address", address), zap.Error(err))
		if entity.KindOf(err) == entity.KindUnauthorized {
			return entity.WalletConnection{}, err
		}
		return entity.WalletConnection{}, entity.NewError(entity.KindRegistrationFailed, op, "backend rejected the connection", err)
	}

	s.mu.Lock()
	if i, ok := s.indexOf(conn.ID); ok {
		s.connections[i] = conn
	} else {
		s.connections = append(s.connections, conn)
	}
	s.mu.Unlock()

	s.logger.Info("Wallet connected",
		zap.String("wallet_id", conn.ID),
		zap.String("provider", string(provider)),
		zap.String("network", string(network)))
	s.notify()
	return conn, nil
}

func (s *ConnectionStore) handshake(ctx context.Context, provider entity.ProviderKind, network entity.Network) (string, error) {
	const op = "ConnectionStore.handshake"

	if provider.SigningPath() == entity.SigningPathRemote {
		address, err := s.backend.RequestCustodialAddress(ctx, provider, network)
		if err != nil {
			if entity.KindOf(err) == entity.KindUnauthorized {
				return "", err
			}
			return "", entity.NewError(entity.KindProviderUnavailable, op, "custodial provider did not issue an address", err)
		}
		if address == "" {
			return "", entity.NewError(entity.KindHandshakeRejected, op, "custodial provider returned no address", nil)
		}
		return address, nil
	}

	client, err := s.clients.GetClient(network)
	if err != nil {
		return "", err
	}
	accounts, err := client.Accounts(ctx)
	if err != nil {
		if entity.KindOf(err) == entity.KindSignatureRejected {
			return "", entity.NewError(entity.KindHandshakeRejected, op, "user declined the connection request", err)
		}
		return "", entity.NewError(entity.KindProviderUnavailable, op, "wallet provider is unreachable", err)
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return "", entity.NewError(entity.KindHandshakeRejected, op, "no account was authorized", nil)
	}
	return accounts[0], nil
}

// Disconnect removes a connection. It reports false if the id is unknown.
func (s *ConnectionStore) Disconnect(ctx context.Context, id string) (bool, error) {
	if _, ok := s.Get(id); !ok {
		return false, nil
	}

	if err := s.backend.DeleteConnection(ctx, id); err != nil {
		s.logger.Error("Failed to delete wallet connection", zap.String("wallet_id", id), zap.Error(err))
		return false, err
	}

	s.mu.Lock()
	if i, ok := s.indexOf(id); ok {
		s.connections = append(s.connections[:i:i], s.connections[i+1:]...)
	}
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.mu.Unlock()

	s.logger.Info("Wallet disconnected", zap.String("wallet_id", id))
	s.notify()
	return true, nil
}

// Update applies a partial update through the backend and replaces the local copy.
func (s *ConnectionStore) Update(ctx context.Context, id string, update entity.WalletConnectionUpdate) (entity.WalletConnection, error) {
	if _, ok := s.Get(id); !ok {
		return entity.WalletConnection{}, entity.NewError(entity.KindWalletNotFound, "ConnectionStore.Update", "wallet "+id+" is not connected", nil)
	}

	conn, err := s.backend.UpdateConnection(ctx, id, update)
	if err != nil {
		s.logger.Error("Failed to update wallet connection", zap.String("wallet_id", id), zap.Error(err))
		return entity.WalletConnection{}, err
	}

	s.mu.Lock()
	if i, ok := s.indexOf(id); ok {
		s.connections[i] = conn
	}
	s.mu.Unlock()

	s.notify()
	return conn, nil
}

// List returns a copy of all connections.
func (s *ConnectionStore) List() []entity.WalletConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.WalletConnection(nil), s.connections...)
}

// Get returns the connection with the given id.
func (s *ConnectionStore) Get(id string) (entity.WalletConnection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.indexOf(id); ok {
		return s.connections[i], true
	}
	return entity.WalletConnection{}, false
}

// Active returns the active connection, if any.
func (s *ConnectionStore) Active() (entity.WalletConnection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectActive(s.connections, s.selectedID)
}

// Select makes id the explicitly chosen active wallet.
func (s *ConnectionStore) Select(id string) error {
	s.mu.Lock()
	if _, ok := s.indexOf(id); !ok {
		s.mu.Unlock()
		return entity.NewError(entity.KindWalletNotFound, "ConnectionStore.Select", "wallet "+id+" is not connected", nil)
	}
	s.selectedID = id
	s.mu.Unlock()

	s.notify()
	return nil
}

// ClearSelection drops the explicit choice; the active wallet falls back to the default rule.
func (s *ConnectionStore) ClearSelection() {
	s.mu.Lock()
	s.selectedID = ""
	s.mu.Unlock()
	s.notify()
}

// FindByAddress returns the connections holding a chain address, compared case-insensitively.
// One EVM account connected on several networks yields several connections.
func (s *ConnectionStore) FindByAddress(address string) []entity.WalletConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []entity.WalletConnection
	for _, c := range s.connections {
		if strings.EqualFold(c.ChainAddress, address) {
			found = append(found, c)
		}
	}
	return found
}

// MarkUsed records local use of a connection.
func (s *ConnectionStore) MarkUsed(id string, at time.Time) {
	s.mu.Lock()
	i, ok := s.indexOf(id)
	if !ok {
		s.mu.Unlock()
		return
	}
	used := at
	s.connections[i].LastUsedAt = &used
	s.mu.Unlock()

	s.notify()
}

// Snapshot returns the current list together with the active connection.
func (s *ConnectionStore) Snapshot() ConnectionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for state changes and returns the function that removes it.
// fn is invoked synchronously after each successful mutation.
func (s *ConnectionStore) Subscribe(fn func(ConnectionSnapshot)) func() {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *ConnectionStore) snapshotLocked() ConnectionSnapshot {
	snap := ConnectionSnapshot{Connections: append([]entity.WalletConnection(nil), s.connections...)}
	if active, ok := selectActive(s.connections, s.selectedID); ok {
		snap.Active = &active
	}
	return snap
}

func (s *ConnectionStore) notify() {
	snap := s.Snapshot()

	s.obsMu.Lock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(ConnectionSnapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// indexOf must be called with mu held.
func (s *ConnectionStore) indexOf(id string) (int, bool) {
	if id == "" {
		return -1, false
	}
	for i, c := range s.connections {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

// selectActive applies the active-wallet rule: the explicit choice if still present, else the
// IsActive connection with the latest LastUsedAt (never-used last, ties by id).
func selectActive(conns []entity.WalletConnection, selectedID string) (entity.WalletConnection, bool) {
	if selectedID != "" {
		for _, c := range conns {
			if c.ID == selectedID {
				return c, true
			}
		}
	}

	candidates := make([]entity.WalletConnection, 0, len(conns))
	for _, c := range conns {
		if c.IsActive {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return entity.WalletConnection{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].LastUsedAt, candidates[j].LastUsedAt
		switch {
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0], true
}

func defaultDisplayName(provider entity.ProviderKind, address string) string {
	short := address
	if len(address) > 10 {
		short = address[:6] + "…" + address[len(address)-4:]
	}
	return strings.ReplaceAll(string(provider), "-", " ") + " " + short
}
