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

package debug_test

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/sync/errgroup"

	metrics "kubevirt.io/vkdebug/pkg/monitoring/metrics/messenger"
	"kubevirt.io/vkdebug/pkg/vulkan/debug"
	"kubevirt.io/vkdebug/pkg/vulkan/vk"
	"kubevirt.io/vkdebug/pkg/vulkan/vk/vktest"
)

var warning = vktest.Event{
	Severity:        vk.DEBUG_UTILS_MESSAGE_SEVERITY_WARNING_BIT_EXT,
	Type:            vk.DEBUG_UTILS_MESSAGE_TYPE_GENERAL_BIT_EXT,
	MessageIDName:   "UNASSIGNED-khronos-validation-createinstance-status-message",
	MessageIDNumber: -671457468,
	Message:         "Khronos Validation Layer Active",
}

type recorder struct {
	lock     sync.Mutex
	messages []debug.Message
}

func (r *recorder) handle(msg *debug.Message) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.messages = append(r.messages, msg.Clone())
}

func (r *recorder) received() []debug.Message {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]debug.Message{}, r.messages...)
}

func mustNotPanic(f func()) {
	defer GinkgoRecover()
	f()
}

var _ = Describe("DebugCallback", func() {

	var instance *vktest.Instance

	BeforeEach(func() {
		instance = vktest.NewInstance(vk.EXT_DEBUG_UTILS_EXTENSION_NAME)
	})

	AfterEach(func() {
		instance.Destroy()
	})

	Context("without VK_EXT_debug_utils", func() {
		It("should fail before calling the driver", func() {
			instance := vktest.NewInstance(vk.KHR_SURFACE_EXTENSION_NAME)
			defer instance.Destroy()

			called := false
			cb, err := debug.NewErrorsAndWarnings(instance, func(*debug.Message) { called = true })
			Expect(err).To(MatchError(debug.ErrMissingExtension))
			Expect(cb).To(BeNil())
			Expect(instance.CreateCalls()).To(BeZero())
			Expect(called).To(BeFalse())
		})

		It("should not call the driver when the entry points are missing", func() {
			ctrl := gomock.NewController(GinkgoT())
			defer ctrl.Finish()

			mockInstance := debug.NewMockInstance(ctrl)
			mockInstance.EXPECT().LoadedExtensions().Return(vk.InstanceExtensions{ExtDebugUtils: true})
			mockInstance.EXPECT().Pointers().Return(vk.NewInstancePointers(nil, nil))

			_, err := debug.NewErrorsAndWarnings(mockInstance, nil)
			Expect(err).To(Equal(debug.ErrMissingExtension))
		})

		It("should only look at the loaded extensions", func() {
			ctrl := gomock.NewController(GinkgoT())
			defer ctrl.Finish()

			mockInstance := debug.NewMockInstance(ctrl)
			mockInstance.EXPECT().LoadedExtensions().Return(vk.InstanceExtensions{ExtDebugReport: true})

			_, err := debug.New(mockInstance, debug.AllSeverities(), debug.AllTypes(), nil)
			Expect(err).To(Equal(debug.ErrMissingExtension))
			Expect(err.Error()).To(Equal("the `VK_EXT_debug_utils` extension was not enabled"))
		})
	})

	Context("with a destroyed instance", func() {
		It("should keep the instance alive until the registration is closed", func() {
			violations := vktest.DestroyViolations()
			rec := &recorder{}
			cb, err := debug.NewErrorsAndWarnings(instance, rec.handle)
			Expect(err).ToNot(HaveOccurred())

			instance.Destroy()
			Expect(instance.Destroyed()).To(BeFalse())
			_, delivered := vktest.Emit(cb.InternalObject(), warning)
			Expect(delivered).To(BeTrue())

			cb.Close()
			Expect(instance.Destroyed()).To(BeTrue())
			Expect(instance.DestroyCalls()).To(Equal(1))
			Expect(instance.LiveMessengers()).To(BeZero())
			Expect(vktest.DestroyViolations()).To(Equal(violations))
			Expect(rec.received()).To(HaveLen(1))
		})

		It("should wait for the finalizer of a forgotten registration", func() {
			func() {
				_, err := debug.NewErrorsAndWarnings(instance, nil)
				Expect(err).ToNot(HaveOccurred())
			}()
			instance.Destroy()

			Eventually(func() bool {
				runtime.GC()
				return instance.Destroyed()
			}).Should(BeTrue())
			Expect(instance.DestroyCalls()).To(Equal(1))
		})

		It("should refuse new registrations", func() {
			instance.Destroy()
			cb, err := debug.NewErrorsAndWarnings(instance, nil)
			Expect(err).To(MatchError(debug.ErrInstanceDestroyed))
			Expect(cb).To(BeNil())
			Expect(instance.CreateCalls()).To(BeZero())
		})

		It("should not call the driver once Retain fails", func() {
			ctrl := gomock.NewController(GinkgoT())
			defer ctrl.Finish()

			mockInstance := debug.NewMockInstance(ctrl)
			mockInstance.EXPECT().LoadedExtensions().Return(vk.InstanceExtensions{ExtDebugUtils: true})
			mockInstance.EXPECT().Pointers().Return(instance.Pointers())
			mockInstance.EXPECT().Retain().Return(false)

			_, err := debug.NewErrorsAndWarnings(mockInstance, nil)
			Expect(err).To(Equal(debug.ErrInstanceDestroyed))
			Expect(instance.CreateCalls()).To(BeZero())
		})
	})

	It("should deliver from threads created by the driver", func() {
		rec := &recorder{}
		cb, err := debug.NewErrorsAndWarnings(instance, rec.handle)
		Expect(err).ToNot(HaveOccurred())
		defer cb.Close()

		for i := 0; i < 3; i++ {
			result, delivered := vktest.EmitOnThread(cb.InternalObject(), warning)
			Expect(delivered).To(BeTrue())
			Expect(result).To(Equal(vk.FALSE))
		}
		Expect(rec.received()).To(HaveLen(3))

		By("containing panics on those threads as well")
		panicking, err := debug.NewErrorsAndWarnings(instance, func(*debug.Message) { panic("on a foreign thread") })
		Expect(err).ToNot(HaveOccurred())
		defer panicking.Close()
		result, delivered := vktest.EmitOnThread(panicking.InternalObject(), warning)
		Expect(delivered).To(BeTrue())
		Expect(result).To(Equal(vk.FALSE))
	})

	It("should register the messenger with the requested masks", func() {
		rec := &recorder{}
		cb, err := debug.New(instance, debug.ErrorsAndWarnings(), debug.GeneralType(), rec.handle)
		Expect(err).ToNot(HaveOccurred())
		defer cb.Close()

		Expect(cb.InternalObject()).ToNot(Equal(vk.NULL_HANDLE))
		Expect(vktest.IsLive(cb.InternalObject())).To(BeTrue())
		Expect(instance.CreateCalls()).To(Equal(1))

		By("dropping messages outside the severity mask")
		_, delivered := vktest.Emit(cb.InternalObject(), vktest.Event{
			Severity: vk.DEBUG_UTILS_MESSAGE_SEVERITY_INFO_BIT_EXT,
			Type:     vk.DEBUG_UTILS_MESSAGE_TYPE_GENERAL_BIT_EXT,
			Message:  "loader info",
		})
		Expect(delivered).To(BeFalse())

		By("dropping messages outside the type mask")
		_, delivered = vktest.Emit(cb.InternalObject(), vktest.Event{
			Severity: vk.DEBUG_UTILS_MESSAGE_SEVERITY_ERROR_BIT_EXT,
			Type:     vk.DEBUG_UTILS_MESSAGE_TYPE_VALIDATION_BIT_EXT,
			Message:  "VUID error",
		})
		Expect(delivered).To(BeFalse())
		Expect(rec.received()).To(BeEmpty())
	})

	It("should deliver a matching message exactly once", func() {
		rec := &recorder{}
		cb, err := debug.NewErrorsAndWarnings(instance, rec.handle)
		Expect(err).ToNot(HaveOccurred())
		defer cb.Close()

		result, delivered := vktest.Emit(cb.InternalObject(), warning)
		Expect(delivered).To(BeTrue())
		Expect(result).To(Equal(vk.FALSE))

		Expect(rec.received()).To(Equal([]debug.Message{{
			Severity:        debug.MessageSeverity{Warning: true},
			Type:            debug.MessageType{General: true},
			LayerPrefix:     warning.MessageIDName,
			MessageIDNumber: warning.MessageIDNumber,
			Description:     warning.Message,
		}}))
	})

	It("should pass an empty layer prefix when the layer sets none", func() {
		rec := &recorder{}
		cb, err := debug.New(instance, debug.AllSeverities(), debug.AllTypes(), rec.handle)
		Expect(err).ToNot(HaveOccurred())
		defer cb.Close()

		_, delivered := vktest.Emit(cb.InternalObject(), vktest.Event{
			Severity: vk.DEBUG_UTILS_MESSAGE_SEVERITY_VERBOSE_BIT_EXT,
			Type:     vk.DEBUG_UTILS_MESSAGE_TYPE_PERFORMANCE_BIT_EXT,
			Message:  "",
		})
		Expect(delivered).To(BeTrue())

		received := rec.received()
		Expect(received).To(HaveLen(1))
		Expect(received[0].LayerPrefix).To(BeEmpty())
		Expect(received[0].Description).To(BeEmpty())
		Expect(received[0].Severity).To(Equal(debug.MessageSeverity{Verbose: true}))
		Expect(received[0].Type).To(Equal(debug.MessageType{Performance: true}))
	})

	It("should keep cloned messages valid after the callback returned", func() {
		var kept debug.Message
		cb, err := debug.NewErrorsAndWarnings(instance, func(msg *debug.Message) {
			kept = msg.Clone()
		})
		Expect(err).ToNot(HaveOccurred())
		defer cb.Close()

		_, delivered := vktest.Emit(cb.InternalObject(), warning)
		Expect(delivered).To(BeTrue())
		// the event strings were freed by Emit
		Expect(kept.Description).To(Equal(warning.Message))
		Expect(kept.LayerPrefix).To(Equal(warning.MessageIDName))
	})

	It("should accept a nil callback", func() {
		cb, err := debug.NewErrorsAndWarnings(instance, nil)
		Expect(err).ToNot(HaveOccurred())
		defer cb.Close()

		result, delivered := vktest.Emit(cb.InternalObject(), warning)
		Expect(delivered).To(BeTrue())
		Expect(result).To(Equal(vk.FALSE))
	})

	It("should contain panics raised by the callback", func() {
		calls := 0
		cb, err := debug.NewErrorsAndWarnings(instance, func(*debug.Message) {
			calls++
			panic("callback failure")
		})
		Expect(err).ToNot(HaveOccurred())
		defer cb.Close()

		panicsBefore := testutil.ToFloat64(metrics.CallbackPanicsTotal)

		var result vk.Bool32
		var delivered bool
		Expect(func() {
			result, delivered = vktest.Emit(cb.InternalObject(), warning)
		}).ToNot(Panic())
		Expect(delivered).To(BeTrue())
		Expect(result).To(Equal(vk.FALSE))
		Expect(testutil.ToFloat64(metrics.CallbackPanicsTotal)).To(Equal(panicsBefore + 1))

		By("staying registered after a panic")
		_, delivered = vktest.Emit(cb.InternalObject(), warning)
		Expect(delivered).To(BeTrue())
		Expect(calls).To(Equal(2))
	})

	It("should count delivered messages", func() {
		cb, err := debug.NewErrorsAndWarnings(instance, nil)
		Expect(err).ToNot(HaveOccurred())
		defer cb.Close()

		counter := metrics.MessagesTotal.WithLabelValues("warning", "general")
		before := testutil.ToFloat64(counter)
		vktest.Emit(cb.InternalObject(), warning)
		vktest.Emit(cb.InternalObject(), warning)
		Expect(testutil.ToFloat64(counter)).To(Equal(before + 2))
	})

	Context("Close", func() {
		It("should destroy the messenger once and stop delivery", func() {
			rec := &recorder{}
			registrations := testutil.ToFloat64(metrics.Registrations)

			cb, err := debug.NewErrorsAndWarnings(instance, rec.handle)
			Expect(err).ToNot(HaveOccurred())
			Expect(testutil.ToFloat64(metrics.Registrations)).To(Equal(registrations + 1))
			messenger := cb.InternalObject()

			cb.Close()
			cb.Close()

			Expect(instance.DestroyCalls()).To(Equal(1))
			Expect(instance.LiveMessengers()).To(BeZero())
			Expect(vktest.IsLive(messenger)).To(BeFalse())
			Expect(testutil.ToFloat64(metrics.Registrations)).To(Equal(registrations))

			_, delivered := vktest.Emit(messenger, warning)
			Expect(delivered).To(BeFalse())
			Expect(rec.received()).To(BeEmpty())
		})

		It("should work from another goroutine than the one that registered", func() {
			rec := &recorder{}
			created := make(chan *debug.DebugCallback)
			go func() {
				defer GinkgoRecover()
				cb, err := debug.NewErrorsAndWarnings(instance, rec.handle)
				Expect(err).ToNot(HaveOccurred())
				created <- cb
			}()

			var cb *debug.DebugCallback
			Eventually(created).Should(Receive(&cb))
			vktest.Emit(cb.InternalObject(), warning)

			closed := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				cb.Close()
				close(closed)
			}()
			Eventually(closed).Should(BeClosed())

			Expect(instance.DestroyCalls()).To(Equal(1))
			_, delivered := vktest.Emit(cb.InternalObject(), warning)
			Expect(delivered).To(BeFalse())
			Expect(rec.received()).To(HaveLen(1))
		})

		It("should keep registrations independent", func() {
			first, second := &recorder{}, &recorder{}
			cb1, err := debug.NewErrorsAndWarnings(instance, first.handle)
			Expect(err).ToNot(HaveOccurred())
			cb2, err := debug.NewErrorsAndWarnings(instance, second.handle)
			Expect(err).ToNot(HaveOccurred())
			defer cb2.Close()

			Expect(cb1.InternalObject()).ToNot(Equal(cb2.InternalObject()))
			Expect(instance.LiveMessengers()).To(Equal(2))

			cb1.Close()
			Expect(instance.LiveMessengers()).To(Equal(1))

			_, delivered := vktest.Emit(cb2.InternalObject(), warning)
			Expect(delivered).To(BeTrue())
			Expect(first.received()).To(BeEmpty())
			Expect(second.received()).To(HaveLen(1))
		})

		It("should be called once the callback is unreachable", func() {
			func() {
				_, err := debug.NewErrorsAndWarnings(instance, nil)
				Expect(err).ToNot(HaveOccurred())
			}()

			Eventually(func() int {
				runtime.GC()
				return instance.DestroyCalls()
			}).Should(Equal(1))
			Expect(instance.LiveMessengers()).To(BeZero())
		})
	})

	It("should panic when the driver fails to create the messenger", func() {
		instance.FailNextCreate(vk.ERROR_OUT_OF_HOST_MEMORY)
		registrations := testutil.ToFloat64(metrics.Registrations)

		var recovered interface{}
		func() {
			defer func() { recovered = recover() }()
			debug.NewErrorsAndWarnings(instance, nil)
		}()

		err, ok := recovered.(error)
		Expect(ok).To(BeTrue(), "expected an error, got %v", recovered)
		var vkErr *vk.Error
		Expect(errors.As(err, &vkErr)).To(BeTrue())
		Expect(vkErr.Result).To(Equal(vk.ERROR_OUT_OF_HOST_MEMORY))
		Expect(instance.CreateCalls()).To(Equal(1))
		Expect(instance.LiveMessengers()).To(BeZero())
		Expect(testutil.ToFloat64(metrics.Registrations)).To(Equal(registrations))

		By("registering normally afterwards")
		cb, err := debug.NewErrorsAndWarnings(instance, nil)
		Expect(err).ToNot(HaveOccurred())
		cb.Close()
	})

	It("should allow concurrent delivery", func() {
		const emitters, perEmitter = 8, 50
		var count int64
		cb, err := debug.NewErrorsAndWarnings(instance, func(*debug.Message) {
			atomic.AddInt64(&count, 1)
		})
		Expect(err).ToNot(HaveOccurred())
		defer cb.Close()

		var g errgroup.Group
		for i := 0; i < emitters; i++ {
			g.Go(func() error {
				for j := 0; j < perEmitter; j++ {
					if _, delivered := vktest.Emit(cb.InternalObject(), warning); !delivered {
						return errors.New("message was not delivered")
					}
				}
				return nil
			})
		}
		Expect(g.Wait()).To(Succeed())
		Expect(atomic.LoadInt64(&count)).To(Equal(int64(emitters * perEmitter)))
	})

	It("should not deliver after Close returns while messages are in flight", func() {
		var (
			closed    int32
			afterStop int32
		)
		cb, err := debug.NewErrorsAndWarnings(instance, func(*debug.Message) {
			if atomic.LoadInt32(&closed) == 1 {
				atomic.AddInt32(&afterStop, 1)
			}
		})
		Expect(err).ToNot(HaveOccurred())
		messenger := cb.InternalObject()

		var g errgroup.Group
		for i := 0; i < 4; i++ {
			g.Go(func() error {
				mustNotPanic(func() {
					for j := 0; j < 200; j++ {
						vktest.Emit(messenger, warning)
					}
				})
				return nil
			})
		}
		cb.Close()
		atomic.StoreInt32(&closed, 1)
		Expect(g.Wait()).To(Succeed())
		Expect(atomic.LoadInt32(&afterStop)).To(BeZero())
	})
})
