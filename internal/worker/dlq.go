package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Los jobs que agotan sus intentos (o no tienen handler) quedan en
// dlq:<cola> hasta que un administrador los reencole.
const DLQPrefix = "dlq:"

// DLQEntry es un job fallido con el motivo del último intento.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

// ErrColaDesconocida se devuelve al pedir una cola que el pool no atiende.
var ErrColaDesconocida = errors.New("cola desconocida")

// SendToDLQ registra el job fallido. Los errores de Redis solo se loguean.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, jobType string, payload json.RawMessage, reason string, attempts int) {
	data, err := json.Marshal(DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
		Attempts:      attempts,
	})
	if err == nil {
		err = rdb.LPush(ctx, DLQPrefix+queue, data).Err()
	}
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Str("job_type", jobType).Msg("dlq: no se pudo guardar el job")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job movido a la cola de fallidos")
}

func validarCola(queue string) error {
	for _, q := range Queues {
		if q == queue {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrColaDesconocida, queue)
}

// DLQLength devuelve cuántos jobs fallidos tiene la cola.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// DLQLengths reports every queue's DLQ size, keyed by queue name.
func DLQLengths(ctx context.Context, rdb *redis.Client) (map[string]int64, error) {
	out := make(map[string]int64, len(Queues))
	for _, q := range Queues {
		n, err := DLQLength(ctx, rdb, q)
		if err != nil {
			return nil, err
		}
		out[q] = n
	}
	return out, nil
}

// ListarDLQ devuelve hasta limit entradas, las más recientes primero.
// Las entradas ilegibles se omiten.
func ListarDLQ(ctx context.Context, rdb *redis.Client, queue string, limit int64) ([]DLQEntry, error) {
	if err := validarCola(queue); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	raws, err := rdb.LRange(ctx, DLQPrefix+queue, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DLQEntry, 0, len(raws))
	for _, raw := range raws {
		var e DLQEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: entrada ilegible")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Reencolar devuelve hasta max jobs fallidos a su cola original, empezando
// por el más antiguo. Las entradas ilegibles se descartan.
func Reencolar(ctx context.Context, rdb *redis.Client, queue string, max int) (int, error) {
	if err := validarCola(queue); err != nil {
		return 0, err
	}
	procesando := DLQPrefix + queue + ":procesando"
	movidos := 0
	for movidos < max {
		raw, err := rdb.LMove(ctx, DLQPrefix+queue, procesando, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return movidos, err
		}

		var e DLQEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: entrada ilegible descartada")
			rdb.LRem(ctx, procesando, 1, raw)
			continue
		}
		job, err := json.Marshal(Job{Type: e.JobType, Payload: e.Payload})
		if err != nil {
			return movidos, err
		}

		_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LPush(ctx, queue, job)
			pipe.LRem(ctx, procesando, 1, raw)
			return nil
		})
		if err != nil {
			return movidos, err
		}
		movidos++
	}
	if movidos > 0 {
		log.Info().Str("queue", queue).Int("jobs", movidos).Msg("dlq: jobs reencolados")
	}
	return movidos, nil
}
