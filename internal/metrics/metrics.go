// Package metrics содержит счётчики prometheus для моста диспетчер-воркер.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchedTotal количество принятых диспетчером запросов.
	DispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_dispatched_requests_total",
		Help: "Total number of prompts accepted by the dispatcher.",
	})

	// AnsweredTotal количество запросов, получивших ответ до таймаута.
	AnsweredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_answered_requests_total",
		Help: "Total number of prompts resolved with an answer.",
	})

	// TimeoutTotal количество запросов, завершившихся таймаутом ожидания.
	TimeoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_timeout_requests_total",
		Help: "Total number of prompts failed by the reply deadline.",
	})

	// InferenceRequestsTotal исходы обращений воркера к inference-сервису.
	InferenceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_inference_requests_total",
		Help: "Total number of inference calls by outcome.",
	}, []string{"status"})
)
