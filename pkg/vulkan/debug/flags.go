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
	"strings"

	"kubevirt.io/vkdebug/pkg/vulkan/vk"
)

// MessageSeverity selects message severities. Fields are independent, any
// combination is valid, including none.
type MessageSeverity struct {
	// An error that may cause undefined results, including an application crash.
	Error bool
	// An unexpected use.
	Warning bool
	// An informational message that may be handy when debugging an application.
	Information bool
	// Diagnostic information from the loader and layers.
	Verbose bool
}

func Errors() MessageSeverity {
	return MessageSeverity{Error: true}
}

func ErrorsAndWarnings() MessageSeverity {
	return MessageSeverity{Error: true, Warning: true}
}

func NoSeverity() MessageSeverity {
	return MessageSeverity{}
}

func AllSeverities() MessageSeverity {
	return MessageSeverity{Error: true, Warning: true, Information: true, Verbose: true}
}

// Flags encodes the set as VkDebugUtilsMessageSeverityFlagsEXT.
func (s MessageSeverity) Flags() vk.DebugUtilsMessageSeverityFlags {
	var flags vk.DebugUtilsMessageSeverityFlags
	if s.Error {
		flags |= vk.DEBUG_UTILS_MESSAGE_SEVERITY_ERROR_BIT_EXT
	}
	if s.Warning {
		flags |= vk.DEBUG_UTILS_MESSAGE_SEVERITY_WARNING_BIT_EXT
	}
	if s.Information {
		flags |= vk.DEBUG_UTILS_MESSAGE_SEVERITY_INFO_BIT_EXT
	}
	if s.Verbose {
		flags |= vk.DEBUG_UTILS_MESSAGE_SEVERITY_VERBOSE_BIT_EXT
	}
	return flags
}

// MessageSeverityFromFlags decodes flags. Unknown bits are ignored.
func MessageSeverityFromFlags(flags vk.DebugUtilsMessageSeverityFlags) MessageSeverity {
	return MessageSeverity{
		Error:       flags&vk.DEBUG_UTILS_MESSAGE_SEVERITY_ERROR_BIT_EXT != 0,
		Warning:     flags&vk.DEBUG_UTILS_MESSAGE_SEVERITY_WARNING_BIT_EXT != 0,
		Information: flags&vk.DEBUG_UTILS_MESSAGE_SEVERITY_INFO_BIT_EXT != 0,
		Verbose:     flags&vk.DEBUG_UTILS_MESSAGE_SEVERITY_VERBOSE_BIT_EXT != 0,
	}
}

func (s MessageSeverity) String() string {
	return joinNames([]namedFlag{
		{"error", s.Error},
		{"warning", s.Warning},
		{"information", s.Information},
		{"verbose", s.Verbose},
	})
}

// ParseMessageSeverity parses a comma separated list of severity names as
// printed by String. "none" and "all" are accepted as well.
func ParseMessageSeverity(value string) (MessageSeverity, error) {
	var s MessageSeverity
	for _, name := range splitNames(value) {
		switch name {
		case "error", "errors":
			s.Error = true
		case "warning", "warnings":
			s.Warning = true
		case "information", "info":
			s.Information = true
		case "verbose":
			s.Verbose = true
		case "all":
			s = AllSeverities()
		case "none":
		default:
			return MessageSeverity{}, fmt.Errorf("unknown message severity %q", name)
		}
	}
	return s, nil
}

// MessageType selects message categories. Fields are independent.
type MessageType struct {
	// Some general event has occurred.
	General bool
	// A call broke a valid usage rule of the Vulkan API.
	Validation bool
	// A potentially non-optimal use of Vulkan.
	Performance bool
}

func GeneralType() MessageType {
	return MessageType{General: true}
}

func AllTypes() MessageType {
	return MessageType{General: true, Validation: true, Performance: true}
}

func NoTypes() MessageType {
	return MessageType{}
}

// Flags encodes the set as VkDebugUtilsMessageTypeFlagsEXT.
func (t MessageType) Flags() vk.DebugUtilsMessageTypeFlags {
	var flags vk.DebugUtilsMessageTypeFlags
	if t.General {
		flags |= vk.DEBUG_UTILS_MESSAGE_TYPE_GENERAL_BIT_EXT
	}
	if t.Validation {
		flags |= vk.DEBUG_UTILS_MESSAGE_TYPE_VALIDATION_BIT_EXT
	}
	if t.Performance {
		flags |= vk.DEBUG_UTILS_MESSAGE_TYPE_PERFORMANCE_BIT_EXT
	}
	return flags
}

// MessageTypeFromFlags decodes flags. Unknown bits are ignored.
func MessageTypeFromFlags(flags vk.DebugUtilsMessageTypeFlags) MessageType {
	return MessageType{
		General:     flags&vk.DEBUG_UTILS_MESSAGE_TYPE_GENERAL_BIT_EXT != 0,
		Validation:  flags&vk.DEBUG_UTILS_MESSAGE_TYPE_VALIDATION_BIT_EXT != 0,
		Performance: flags&vk.DEBUG_UTILS_MESSAGE_TYPE_PERFORMANCE_BIT_EXT != 0,
	}
}

func (t MessageType) String() string {
	return joinNames([]namedFlag{
		{"general", t.General},
		{"validation", t.Validation},
		{"performance", t.Performance},
	})
}

func ParseMessageType(value string) (MessageType, error) {
	var t MessageType
	for _, name := range splitNames(value) {
		switch name {
		case "general":
			t.General = true
		case "validation":
			t.Validation = true
		case "performance":
			t.Performance = true
		case "all":
			t = AllTypes()
		case "none":
		default:
			return MessageType{}, fmt.Errorf("unknown message type %q", name)
		}
	}
	return t, nil
}

type namedFlag struct {
	name string
	set  bool
}

func joinNames(flags []namedFlag) string {
	names := make([]string, 0, len(flags))
	for _, f := range flags {
		if f.set {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

func splitNames(value string) []string {
	names := []string{}
	for _, field := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '|' }) {
		if name := strings.ToLower(strings.TrimSpace(field)); name != "" {
			names = append(names, name)
		}
	}
	return names
}
