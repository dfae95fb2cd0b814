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

const otpRecordVersion1 = 1

// RedisOTPStore externalizes the OTP map to Redis so multiple processes can
// share one authoritative set of outstanding codes. Expiry is enforced both
// by the key TTL and by the ExpiresAt field inside the record.
type RedisOTPStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisOTPStore(redisClient redis.UniversalClient, prefix string) *RedisOTPStore {
	if prefix == "" {
		prefix = "sop"
	}
	return &RedisOTPStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisOTPStore) key(accountKey string) string {
	return s.prefix + ":" + accountKey
}

func (s *RedisOTPStore) Save(ctx context.Context, accountKey string, record *OTPRecord, ttl time.Duration) error {
	encoded, err := encodeOTPRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(accountKey), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPBackend, err)
	}
	return nil
}

func (s *RedisOTPStore) Consume(ctx context.Context, accountKey, code string, maxAttempts int) (*OTPRecord, error) {
	const maxRetries = 4
	key := s.key(accountKey)

	for i := 0; i < maxRetries; i++ {
		var matched *OTPRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeOTPRecord(data)
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
				return ErrOTPExpired
			}

			if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
				record.Attempts++
				if int(record.Attempts) >= maxAttempts {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return ErrOTPAttemptsExceeded
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
					return ErrOTPExpired
				}

				updated, err := encodeOTPRecord(record)
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
				return ErrOTPMismatch
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
				return nil, ErrOTPNotFound
			case errors.Is(err, ErrOTPExpired), errors.Is(err, ErrOTPMismatch), errors.Is(err, ErrOTPAttemptsExceeded):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrOTPBackend, err)
			}
		}

		return matched, nil
	}

	return nil, ErrOTPNotFound
}

func encodeOTPRecord(record *OTPRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(otpRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.Code) > 255 {
		return nil, errors.New("otp code length exceeded")
	}
	if len(record.SubjectID) > 65535 {
		return nil, errors.New("otp subject id length exceeded")
	}

	buf.WriteByte(byte(len(record.Code)))
	buf.WriteString(record.Code)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.SubjectID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.SubjectID)

	return buf.Bytes(), nil
}

func decodeOTPRecord(data []byte) (*OTPRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != otpRecordVersion1 {
		return nil, errors.New("invalid otp record version")
	}

	record := &OTPRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	codeLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(reader, code); err != nil {
		return nil, err
	}
	record.Code = string(code)

	var subjectLen uint16
	if err := binary.Read(reader, binary.BigEndian, &subjectLen); err != nil {
		return nil, err
	}
	subject := make([]byte, subjectLen)
	if _, err := io.ReadFull(reader, subject); err != nil {
		return nil, err
	}
	record.SubjectID = string(subject)

	return record, nil
}
