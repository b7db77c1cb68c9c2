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

package debug

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	gopointer "github.com/mattn/go-pointer"

	metrics "kubevirt.io/vkdebug/pkg/monitoring/metrics/messenger"
	"kubevirt.io/vkdebug/pkg/vulkan/vk"
)

//go:generate mockgen -source $GOFILE -package=$GOPACKAGE -destination=generated_mock_$GOFILE

// Instance is the part of a Vulkan instance a debug callback needs. A
// registration holds the instance with Retain until it is closed, so the
// instance must not release its VkInstance while references are held.
type Instance interface {
	LoadedExtensions() vk.InstanceExtensions
	Pointers() *vk.InstancePointers
	InternalObject() vk.InstanceHandle
	Retain() bool
	Release()
}

// Callback receives messages. It can be called from any thread, concurrently
// with itself, until the DebugCallback that registered it is closed.
type Callback func(msg *Message)

// DebugCallback is the registration of a callback called by validation
// layers. The callback can be called as long as this object is alive.
type DebugCallback struct {
	instance     Instance
	messenger    vk.DebugUtilsMessenger
	userCallback unsafe.Pointer
	closeOnce    sync.Once
}

// New registers userCallback for messages matching severity and ty.
//
// Panics raised by userCallback are recovered and dropped. A failure of the
// driver to create the messenger is not recoverable and panics.
func New(instance Instance, severity MessageSeverity, ty MessageType, userCallback Callback) (*DebugCallback, error) {
	if !instance.LoadedExtensions().ExtDebugUtils || !instance.Pointers().HasDebugUtils() {
		return nil, ErrMissingExtension
	}
	if !instance.Retain() {
		return nil, ErrInstanceDestroyed
	}
	if userCallback == nil {
		userCallback = func(*Message) {}
	}

	// The driver keeps this address until the messenger is destroyed, so it
	// must not be Go memory.
	userData := gopointer.Save(userCallback)

	info := vk.DebugUtilsMessengerCreateInfo{
		MessageSeverity: severity.Flags(),
		MessageType:     ty.Flags(),
		UserCallback:    trampoline(),
		UserData:        userData,
	}

	var messenger vk.DebugUtilsMessenger
	result := instance.Pointers().CreateDebugUtilsMessengerEXT(instance.InternalObject(), &info, &messenger)
	if err := vk.CheckErrors(result); err != nil {
		gopointer.Unref(userData)
		instance.Release()
		panic(fmt.Errorf("unexpected error creating debug messenger: %w", err))
	}

	c := &DebugCallback{
		instance:     instance,
		messenger:    messenger,
		userCallback: userData,
	}
	runtime.SetFinalizer(c, (*DebugCallback).Close)
	metrics.ObserveRegistration()
	return c, nil
}

// NewErrorsAndWarnings registers userCallback for general errors and warnings.
func NewErrorsAndWarnings(instance Instance, userCallback Callback) (*DebugCallback, error) {
	return New(instance, ErrorsAndWarnings(), GeneralType(), userCallback)
}

// InternalObject returns the VkDebugUtilsMessengerEXT backing the callback.
func (c *DebugCallback) InternalObject() vk.DebugUtilsMessenger {
	return c.messenger
}

// Close unregisters the callback. Once it returns the callback is never
// called again, and an instance waiting in Destroy for this registration is
// destroyed. Close is safe to call more than once and from any goroutine.
// A DebugCallback that becomes unreachable is closed by the garbage
// collector, so keep it referenced for as long as messages are wanted.
func (c *DebugCallback) Close() {
	c.closeOnce.Do(func() {
		runtime.SetFinalizer(c, nil)
		c.instance.Pointers().DestroyDebugUtilsMessengerEXT(c.instance.InternalObject(), c.messenger)
		// only now is the driver guaranteed to have dropped the address
		gopointer.Unref(c.userCallback)
		metrics.ObserveDeregistration()
		c.instance.Release()
	})
}
