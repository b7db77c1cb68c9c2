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

package testing

import (
	"fmt"

	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
	dto "github.com/prometheus/client_model/go"
)

// ContainMetric succeeds when the gathered metric families hold a sample of
// the named metric carrying all of labels.
func ContainMetric(name string, labels map[string]string) types.GomegaMatcher {
	return &MetricMatcher{Name: name, Labels: labels}
}

type MetricMatcher struct {
	Name   string
	Labels map[string]string
}

func (matcher *MetricMatcher) FailureMessage(actual interface{}) (message string) {
	msg := format.Message(actual, "to contain metric", matcher.Name)

	if matcher.Labels != nil {
		msg += fmt.Sprintf(" with labels %v", matcher.Labels)
	}

	return msg
}

func (matcher *MetricMatcher) NegatedFailureMessage(actual interface{}) (message string) {
	msg := format.Message(actual, "not to contain metric", matcher.Name)

	if matcher.Labels != nil {
		msg += fmt.Sprintf(" with labels %v", matcher.Labels)
	}

	return msg
}

func (matcher *MetricMatcher) Match(actual interface{}) (success bool, err error) {
	families, ok := actual.([]*dto.MetricFamily)
	if !ok {
		return false, fmt.Errorf("metric matcher requires gathered []*dto.MetricFamily, got %T", actual)
	}

	for _, family := range families {
		if family.GetName() != matcher.Name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if hasLabels(metric, matcher.Labels) {
				return true, nil
			}
		}
	}

	return false, nil
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	actual := map[string]string{}
	for _, pair := range metric.GetLabel() {
		actual[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if actualValue, ok := actual[k]; !ok || actualValue != v {
			return false
		}
	}
	return true
}
