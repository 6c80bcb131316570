package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/fin-advisor/internal/app"
	"github.com/suPer8Hu/fin-advisor/internal/config"
	"github.com/suPer8Hu/fin-advisor/internal/logging"
	"github.com/suPer8Hu/fin-advisor/internal/store/rabbitmq"
	"github.com/suPer8Hu/fin-advisor/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New("info", "json")
		l.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wire app")
	}
	defer a.Close()

	retries, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit publisher")
	}
	defer retries.Close()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit dial")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit channel")
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatal().Err(err).Msg("declare topology")
	}

	concurrency := cfg.WorkerConcurrency
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal().Err(err).Msg("qos")
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("consume")
	}

	runner := worker.NewRunner(a.ChatRepo, a.Advisor, log)
	log.Info().Str("queue", cfg.RabbitQueue).Int("concurrency", concurrency).Msg("worker started")

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			wlog := log.With().Int("worker", workerID).Logger()
			for d := range jobs {
				m, err := rabbitmq.DecodeJob(d.Body)
				if err != nil {
					wlog.Warn().Err(err).Msg("bad message")
					_ = d.Nack(false, false)
					continue
				}

				attempt := rabbitmq.Attempt(d.Headers)
				out, err := runner.Handle(ctx, m.JobID, attempt)
				switch out {
				case worker.Done:
					if err := d.Ack(false); err != nil {
						wlog.Error().Err(err).Str("job_id", m.JobID).Msg("ack failed")
					}
				case worker.Retry:
					delay := worker.Backoff(attempt + 1)
					if perr := retries.PublishRetry(ctx, m.JobID, attempt+1, delay); perr != nil {
						wlog.Error().Err(perr).Str("job_id", m.JobID).Msg("publish retry failed")
						_ = d.Nack(false, false)
						continue
					}
					_ = d.Ack(false)
				default:
					wlog.Error().Err(err).Str("job_id", m.JobID).Msg("job dead-lettered")
					_ = d.Nack(false, false)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Error().Msg("delivery channel closed, stopping")
				close(jobs)
				wg.Wait()
				os.Exit(1)
			}
			jobs <- d
		}
	}
}
