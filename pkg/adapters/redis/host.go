package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// typeHeaderSep ends the type header of a stored value: "<type>\n<payload>".
const typeHeaderSep = '\n'

// putScript writes a typed value unless the key holds a non-string type.
var putScript = backend.NewScript(`
local t = redis.call("type", KEYS[1])
if type(t) == "table" then t = t["ok"] end
if t ~= "none" and t ~= "string" then
	return -1
end
redis.call("set", KEYS[1], ARGV[1])
return 1
`)

// deleteScript removes a typed value unless the key holds a non-string type.
var deleteScript = backend.NewScript(`
local t = redis.call("type", KEYS[1])
if type(t) == "table" then t = t["ok"] end
if t == "none" then
	return 0
end
if t ~= "string" then
	return -1
end
return redis.call("del", KEYS[1])
`)

// Host implements ports.Host and ports.FieldSwapper on a Redis server.
// Entities are Redis hashes; Definitions are strings carrying a type header.
type Host struct {
	client *backend.Client
}

var (
	_ ports.Host         = (*Host)(nil)
	_ ports.FieldSwapper = (*Host)(nil)
)

// NewFromClient creates a Host from an existing client.
func NewFromClient(client *backend.Client) *Host {
	return &Host{client: client}
}

// Client returns the underlying client.
func (h *Host) Client() *backend.Client {
	return h.client
}

// GetField reads one attribute of a hash (HGET).
func (h *Host) GetField(ctx context.Context, key, field string) (string, bool, error) {
	v, err := h.client.HGet(ctx, key, field).Result()
	if errors.Is(err, backend.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("hget", key, err)
	}
	return v, true, nil
}

// SetField writes one attribute (HSET).
func (h *Host) SetField(ctx context.Context, key, field, value string) error {
	if err := h.client.HSet(ctx, key, field, value).Err(); err != nil {
		return classify("hset", key, err)
	}
	return nil
}

// SetFieldIfAbsent writes the attribute only if it does not exist yet (HSETNX).
func (h *Host) SetFieldIfAbsent(ctx context.Context, key, field, value string) (bool, error) {
	set, err := h.client.HSetNX(ctx, key, field, value).Result()
	if err != nil {
		return false, classify("hsetnx", key, err)
	}
	return set, nil
}

// DeleteField removes one attribute (HDEL).
func (h *Host) DeleteField(ctx context.Context, key, field string) error {
	if err := h.client.HDel(ctx, key, field).Err(); err != nil {
		return classify("hdel", key, err)
	}
	return nil
}

// Fields returns every attribute of the hash (HGETALL).
func (h *Host) Fields(ctx context.Context, key string) (map[string]string, error) {
	all, err := h.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, classify("hgetall", key, err)
	}
	return all, nil
}

// SwapField sets field to next only if it currently holds prev. The read and
// the write run in a WATCH/MULTI transaction; a concurrent write to key makes
// the swap report false.
func (h *Host) SwapField(ctx context.Context, key, field, prev, next string) (bool, error) {
	swapped := false
	err := h.client.Watch(ctx, func(tx *backend.Tx) error {
		cur, err := tx.HGet(ctx, key, field).Result()
		if errors.Is(err, backend.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if cur != prev {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.HSet(ctx, key, field, next)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)

	switch {
	case errors.Is(err, backend.TxFailedErr):
		return false, nil
	case err != nil:
		return false, classify("swap", key, err)
	}
	return swapped, nil
}

// PutValue stores v as "<type>\n<payload>", replacing any prior string value.
func (h *Host) PutValue(ctx context.Context, key string, vt ports.ValueType, v any) error {
	payload, err := vt.Encode(v)
	if err != nil {
		return err
	}
	data := make([]byte, 0, len(vt.Name())+1+len(payload))
	data = append(data, vt.Name()...)
	data = append(data, typeHeaderSep)
	data = append(data, payload...)

	res, err := putScript.Run(ctx, h.client, []string{key}, data).Int()
	if err != nil {
		return classify("put", key, err)
	}
	if res < 0 {
		return fmt.Errorf("put %q: %w", key, domain.ErrWrongType)
	}
	return nil
}

// GetValue decodes the value stored under key with vt.
func (h *Host) GetValue(ctx context.Context, key string, vt ports.ValueType) (any, error) {
	raw, err := h.client.Get(ctx, key).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("get %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, classify("get", key, err)
	}

	name, payload, ok := strings.Cut(string(raw), string(typeHeaderSep))
	if !ok || name != vt.Name() {
		return nil, fmt.Errorf("get %q: %w", key, domain.ErrWrongType)
	}
	return vt.Decode([]byte(payload))
}

// DeleteValue removes the string value under key.
func (h *Host) DeleteValue(ctx context.Context, key string) error {
	res, err := deleteScript.Run(ctx, h.client, []string{key}).Int()
	if err != nil {
		return classify("delete", key, err)
	}
	if res < 0 {
		return fmt.Errorf("delete %q: %w", key, domain.ErrWrongType)
	}
	return nil
}

// classify maps WRONGTYPE replies to domain.ErrWrongType.
func classify(op, key string, err error) error {
	if strings.HasPrefix(err.Error(), "WRONGTYPE") {
		return fmt.Errorf("%s %q: %w", op, key, domain.ErrWrongType)
	}
	return fmt.Errorf("%s %q: %w", op, key, err)
}
