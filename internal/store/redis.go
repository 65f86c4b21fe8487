// Package store implements the durable state gateway on Redis. Live games
// are shadowed here so the orchestrator can recover after a restart; nothing
// in this package is ever treated as the source of truth while the process
// is up.
package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playpong/backend/internal/game"
)

const (
	gameKeyPrefix   = "game:"      // game:<id> hash with full session state
	connKeyPrefix   = "conn:game:" // conn:game:<connID> -> game id
	tokenKeyPrefix  = "reconnect:" // reconnect:<token> -> token session JSON, TTL-bound
	tokensSetPrefix = "reconnect:game:"

	openGamesKey    = "games:open"
	playingGamesKey = "games:playing"
	pausedGamesKey  = "games:paused"
)

// RedisStore implements game.Store on a Redis client.
type RedisStore struct {
	rdb      *redis.Client
	tokenTTL time.Duration
}

// NewRedisStore creates a store. tokenTTL bounds the per-game token index so
// stale indexes clean themselves up even if eviction never runs.
func NewRedisStore(rdb *redis.Client, tokenTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, tokenTTL: tokenTTL}
}

func (s *RedisStore) CreateGame(ctx context.Context, g *game.Game) error {
	key := gameKeyPrefix + g.ID
	if err := s.rdb.HSet(ctx, key, serializeGame(g)).Err(); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, openGamesKey, g.ID).Err()
}

func (s *RedisStore) SaveGame(ctx context.Context, g *game.Game) error {
	return s.rdb.HSet(ctx, gameKeyPrefix+g.ID, serializeGame(g)).Err()
}

func (s *RedisStore) SetPlayerJoined(ctx context.Context, g *game.Game) error {
	key := gameKeyPrefix + g.ID
	fields := map[string]string{"status": string(g.Status)}
	writePlayer(fields, 2, g.Player2)
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return err
	}
	return s.SetGamePhase(ctx, g.ID, g.Status)
}

func (s *RedisStore) SyncGameState(ctx context.Context, g *game.Game) error {
	return s.rdb.HSet(ctx, gameKeyPrefix+g.ID, serializeMutable(g)).Err()
}

// SetGamePhase writes the status field and moves the game between the
// open/playing/paused index sets.
func (s *RedisStore) SetGamePhase(ctx context.Context, gameID string, status game.GameStatus) error {
	if err := s.rdb.HSet(ctx, gameKeyPrefix+gameID, "status", string(status)).Err(); err != nil {
		return err
	}

	var target string
	switch status {
	case game.StatusWaiting:
		target = openGamesKey
	case game.StatusPlaying:
		target = playingGamesKey
	case game.StatusPaused:
		target = pausedGamesKey
	}
	for _, set := range []string{openGamesKey, playingGamesKey, pausedGamesKey} {
		if set == target {
			continue
		}
		if err := s.rdb.SRem(ctx, set, gameID).Err(); err != nil {
			return err
		}
	}
	if target == "" { // FINISHED is never indexed
		return nil
	}
	return s.rdb.SAdd(ctx, target, gameID).Err()
}

func (s *RedisStore) RemoveGame(ctx context.Context, gameID string) error {
	if err := s.rdb.Del(ctx, gameKeyPrefix+gameID).Err(); err != nil {
		return err
	}
	for _, set := range []string{openGamesKey, playingGamesKey, pausedGamesKey} {
		if err := s.rdb.SRem(ctx, set, gameID).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) SetConnMapping(ctx context.Context, connID, gameID string) error {
	return s.rdb.Set(ctx, connKeyPrefix+connID, gameID, 0).Err()
}

func (s *RedisStore) RemoveConnMapping(ctx context.Context, connID string) error {
	return s.rdb.Del(ctx, connKeyPrefix+connID).Err()
}

func (s *RedisStore) SetPlayerConnected(ctx context.Context, gameID string, slot int, connected bool, connID string) error {
	prefix := "player" + strconv.Itoa(slot) + "_"
	fields := map[string]string{
		prefix + "connected": strconv.FormatBool(connected),
		prefix + "conn":      connID,
	}
	return s.rdb.HSet(ctx, gameKeyPrefix+gameID, fields).Err()
}

func (s *RedisStore) SaveReconnectToken(ctx context.Context, token string, sess game.TokenSession, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, tokenKeyPrefix+token, data, ttl).Err(); err != nil {
		return err
	}
	// Per-game index so destroying a game can invalidate its tokens.
	setKey := tokensSetPrefix + sess.GameID
	if err := s.rdb.SAdd(ctx, setKey, token).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, setKey, s.tokenTTL).Err()
}

func (s *RedisStore) GetReconnectToken(ctx context.Context, token string) (*game.TokenSession, error) {
	data, err := s.rdb.Get(ctx, tokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess game.TokenSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) RemoveReconnectToken(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, tokenKeyPrefix+token).Err()
}

func (s *RedisStore) RemoveGameTokens(ctx context.Context, gameID string) error {
	setKey := tokensSetPrefix + gameID
	tokens, err := s.rdb.SMembers(ctx, setKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, token := range tokens {
		if err := s.rdb.Del(ctx, tokenKeyPrefix+token).Err(); err != nil {
			return err
		}
	}
	return s.rdb.Del(ctx, setKey).Err()
}

func (s *RedisStore) LoadGame(ctx context.Context, gameID string) (*game.Game, error) {
	fields, err := s.rdb.HGetAll(ctx, gameKeyPrefix+gameID).Result()
	if err != nil {
		return nil, err
	}
	return deserializeGame(fields), nil
}

// LoadAllGames scans for persisted game hashes. Token index sets live under
// reconnect:game:* and conn mappings under conn:game:*, so a game:* scan
// only ever hits session hashes.
func (s *RedisStore) LoadAllGames(ctx context.Context) ([]*game.Game, error) {
	var games []*game.Game
	iter := s.rdb.Scan(ctx, 0, gameKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		fields, err := s.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return games, err
		}
		if g := deserializeGame(fields); g != nil {
			games = append(games, g)
		}
	}
	return games, iter.Err()
}
