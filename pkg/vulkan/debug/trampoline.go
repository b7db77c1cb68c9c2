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

/*
#cgo CFLAGS: -I${SRCDIR}/../vk
#include <string.h>
#include "vulkan_debug_utils.h"

VkBool32 VKAPI_CALL vkdebug_messenger_callback(VkDebugUtilsMessageSeverityFlagBitsEXT severity,
    VkDebugUtilsMessageTypeFlagsEXT types, const VkDebugUtilsMessengerCallbackDataEXT *data,
    void *user_data);
*/
import "C"

import (
	"sync"
	"unsafe"

	gopointer "github.com/mattn/go-pointer"
	"github.com/prometheus/client_golang/prometheus"

	metrics "kubevirt.io/vkdebug/pkg/monitoring/metrics/messenger"
	"kubevirt.io/vkdebug/pkg/vulkan/vk"
)

// trampoline is the only function pointer ever handed to a driver as
// pfnUserCallback.
func trampoline() unsafe.Pointer {
	return unsafe.Pointer(C.vkdebug_messenger_callback)
}

// borrowCString returns a string sharing memory with p. The string must not
// outlive the C call that provided p.
func borrowCString(p *C.char) string {
	if p == nil {
		return ""
	}
	return unsafe.String((*byte)(unsafe.Pointer(p)), int(C.strlen(p)))
}

//export vkdebugMessengerCallback
func vkdebugMessengerCallback(severity C.VkDebugUtilsMessageSeverityFlagBitsEXT, types C.VkDebugUtilsMessageTypeFlagsEXT,
	data *C.VkDebugUtilsMessengerCallbackDataEXT, userData unsafe.Pointer) C.VkBool32 {
	// userData was produced by gopointer.Save in New and stays valid until
	// the messenger is destroyed.
	callback, ok := gopointer.Restore(userData).(Callback)
	if !ok || data == nil {
		return C.VK_FALSE
	}

	message := newMessage(
		vk.DebugUtilsMessageSeverityFlags(severity),
		vk.DebugUtilsMessageTypeFlags(types),
		borrowCString(data.pMessageIdName),
		int32(data.messageIdNumber),
		borrowCString(data.pMessage),
	)
	invoke(callback, &message, messageCounter(&message))

	// VK_TRUE would abort the Vulkan call that triggered the message.
	return C.VK_FALSE
}

// messageCounters holds one prometheus.Counter per known severity and type
// combination, keyed by their encoded flags.
var messageCounters sync.Map

func messageCounter(message *Message) prometheus.Counter {
	key := uint64(message.Severity.Flags())<<32 | uint64(message.Type.Flags())
	if counter, ok := messageCounters.Load(key); ok {
		return counter.(prometheus.Counter)
	}
	counter, _ := messageCounters.LoadOrStore(key,
		metrics.MessageCounter(message.Severity.String(), message.Type.String()))
	return counter.(prometheus.Counter)
}

// invoke calls callback and swallows any panic raised by it so that it never
// unwinds into the layer that called us. Callbacks must leave their shared
// state usable if they panic halfway through.
func invoke(callback Callback, message *Message, counter prometheus.Counter) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveCallbackPanic()
		}
	}()
	counter.Inc()
	callback(message)
}
