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

package listen_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sync/errgroup"

	"kubevirt.io/vkdebug/pkg/config"
	"kubevirt.io/vkdebug/pkg/vkdebug/listen"
	"kubevirt.io/vkdebug/pkg/vulkan/debug"
)

var _ = Describe("Printer", func() {

	var (
		buffer  *bytes.Buffer
		warning *debug.Message
		verbose *debug.Message
	)

	BeforeEach(func() {
		buffer = &bytes.Buffer{}
		warning = &debug.Message{
			Severity:        debug.MessageSeverity{Warning: true},
			Type:            debug.MessageType{Validation: true},
			LayerPrefix:     "UNASSIGNED-CoreValidation-DrawState-InvalidImageLayout",
			MessageIDNumber: 1303270965,
			Description:     "image layout mismatch",
		}
		verbose = &debug.Message{
			Severity:    debug.MessageSeverity{Verbose: true},
			Type:        debug.GeneralType(),
			Description: "loader scanning layers",
		}
	})

	Context("with text output", func() {
		It("should print one line per message", func() {
			p := listen.NewPrinter(buffer, config.OutputText, 2)
			p.Handle(warning)
			p.Handle(verbose)
			Expect(buffer.String()).To(Equal(
				"[warning] UNASSIGNED-CoreValidation-DrawState-InvalidImageLayout (validation): image layout mismatch\n" +
					"[verbose] (general): loader scanning layers\n"))
		})
	})

	Context("with logfmt output", func() {
		It("should map the severity to the log level", func() {
			p := listen.NewPrinter(buffer, config.OutputLogfmt, 2)
			p.Handle(warning)
			Expect(buffer.String()).To(ContainSubstring("level=warning"))
			Expect(buffer.String()).To(ContainSubstring("type=validation"))
			Expect(buffer.String()).To(ContainSubstring("id=UNASSIGNED-CoreValidation-DrawState-InvalidImageLayout"))
			Expect(buffer.String()).To(ContainSubstring("idNumber=1303270965"))
			Expect(buffer.String()).To(ContainSubstring(`msg="image layout mismatch"`))
		})

		It("should log errors at error level", func() {
			p := listen.NewPrinter(buffer, config.OutputLogfmt, 0)
			p.Handle(&debug.Message{Severity: debug.Errors(), Type: debug.GeneralType(), Description: "lost"})
			Expect(buffer.String()).To(ContainSubstring("level=error"))
		})

		It("should only print verbose messages at high verbosity", func() {
			p := listen.NewPrinter(buffer, config.OutputLogfmt, 2)
			p.Handle(verbose)
			Expect(buffer.String()).To(BeEmpty())

			p = listen.NewPrinter(buffer, config.OutputLogfmt, 4)
			p.Handle(verbose)
			Expect(buffer.String()).To(ContainSubstring("level=info"))
			Expect(buffer.String()).To(ContainSubstring(`msg="loader scanning layers"`))
		})
	})

	It("should be safe for concurrent use", func() {
		p := listen.NewPrinter(buffer, config.OutputText, 2)
		var g errgroup.Group
		for i := 0; i < 10; i++ {
			g.Go(func() error {
				p.Handle(warning)
				return nil
			})
		}
		Expect(g.Wait()).To(Succeed())
		Expect(bytes.Count(buffer.Bytes(), []byte("\n"))).To(Equal(10))
	})

	Context("with a rate limit", func() {
		It("should drop and count messages over the limit", func() {
			p := listen.NewPrinter(buffer, config.OutputText, 2)
			p.SetRateLimit(1)
			for i := 0; i < 5; i++ {
				p.Handle(warning)
			}
			Expect(bytes.Count(buffer.Bytes(), []byte("\n"))).To(Equal(1))
			Expect(p.Dropped()).To(BeEquivalentTo(4))
		})

		It("should print everything once the limit is removed", func() {
			p := listen.NewPrinter(buffer, config.OutputText, 2)
			p.SetRateLimit(1)
			p.Handle(warning)
			p.SetRateLimit(0)
			for i := 0; i < 5; i++ {
				p.Handle(warning)
			}
			Expect(bytes.Count(buffer.Bytes(), []byte("\n"))).To(Equal(6))
			Expect(p.Dropped()).To(BeZero())
		})
	})
})
