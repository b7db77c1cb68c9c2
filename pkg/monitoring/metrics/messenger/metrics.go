/*
 * This file is part of the KubeVirt project
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * Copyright The KubeVirt Authors.
 *
 */

package messenger

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	messengerMetrics = []prometheus.Collector{
		MessagesTotal,
		CallbackPanicsTotal,
		Registrations,
	}

	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vkdebug_messages_total",
			Help: "Total number of messages delivered to debug callbacks",
		},
		[]string{"severity", "type"},
	)

	CallbackPanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vkdebug_callback_panics_total",
			Help: "Total number of panics recovered from debug callbacks",
		},
	)

	Registrations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vkdebug_registrations",
			Help: "Number of debug messengers currently registered",
		},
	)
)

func SetupMetrics(registerer prometheus.Registerer) error {
	for _, m := range messengerMetrics {
		if err := registerer.Register(m); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// MessageCounter returns the child of MessagesTotal for the given labels.
// Callers on hot paths keep the result instead of looking it up each time.
func MessageCounter(severity, messageType string) prometheus.Counter {
	return MessagesTotal.WithLabelValues(severity, messageType)
}

func ObserveCallbackPanic() {
	CallbackPanicsTotal.Inc()
}

func ObserveRegistration() {
	Registrations.Inc()
}

func ObserveDeregistration() {
	Registrations.Dec()
}
