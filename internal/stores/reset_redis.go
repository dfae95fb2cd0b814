package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetRecordVersion1 = 1

// RedisResetStore externalizes reset grants to Redis. Records are binary
// encoded with a leading version byte; consumption runs under WATCH/MULTI so
// two racing Consume calls cannot both succeed.
type RedisResetStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisResetStore(redisClient redis.UniversalClient, prefix string) *RedisResetStore {
	if prefix == "" {
		prefix = "srt"
	}
	return &RedisResetStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisResetStore) key(accountKey string) string {
	return s.prefix + ":" + accountKey
}

func (s *RedisResetStore) Save(ctx context.Context, accountKey string, record *ResetRecord, ttl time.Duration) error {
	encoded, err := encodeResetRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(accountKey), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrResetBackend, err)
	}
	return nil
}

func (s *RedisResetStore) Consume(ctx context.Context, accountKey string, providedHash [32]byte, maxAttempts int) (*ResetRecord, error) {
	const maxRetries = 4
	key := s.key(accountKey)

	for i := 0; i < maxRetries; i++ {
		var matched *ResetRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeResetRecord(data)
			if err != nil {
				return err
			}

			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrResetExpired
			}

			if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
				record.Attempts++
				if int(record.Attempts) >= maxAttempts {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return ErrResetAttemptsExceeded
				}

				ttl := time.Until(time.Unix(record.ExpiresAt, 0))
				if ttl <= 0 {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return ErrResetExpired
				}

				updated, err := encodeResetRecord(record)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrResetMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrResetNotFound
			case errors.Is(err, ErrResetExpired), errors.Is(err, ErrResetMismatch), errors.Is(err, ErrResetAttemptsExceeded):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrResetBackend, err)
			}
		}

		return matched, nil
	}

	return nil, ErrResetNotFound
}

func encodeResetRecord(record *ResetRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(resetRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.SubjectID) > 65535 {
		return nil, errors.New("reset subject id length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.SubjectID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.SubjectID)
	buf.Write(record.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeResetRecord(data []byte) (*ResetRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != resetRecordVersion1 {
		return nil, errors.New("invalid reset record version")
	}

	record := &ResetRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var subjectLen uint16
	if err := binary.Read(reader, binary.BigEndian, &subjectLen); err != nil {
		return nil, err
	}
	subject := make([]byte, subjectLen)
	if _, err := io.ReadFull(reader, subject); err != nil {
		return nil, err
	}
	record.SubjectID = string(subject)

	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
