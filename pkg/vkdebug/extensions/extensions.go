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

package extensions

import (
	"fmt"
	"io"
	"sort"

	"github.com/blang/semver"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"kubevirt.io/vkdebug/pkg/vulkan/vk"
)

const COMMAND_EXTENSIONS = "extensions"

var loadLibrary = vk.Load

func NewExtensionsCommand() *cobra.Command {
	var (
		loaderPaths []string
		minVersion  string
	)
	cmd := &cobra.Command{
		Use:   COMMAND_EXTENSIONS,
		Short: "List the instance extensions offered by the Vulkan loader.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var required *semver.Version
			if minVersion != "" {
				v, err := semver.ParseTolerant(minVersion)
				if err != nil {
					return errors.Wrapf(err, "invalid minimum version %q", minVersion)
				}
				required = &v
			}

			library, err := loadLibrary(loaderPaths...)
			if err != nil {
				return err
			}
			defer library.Close()

			apiVersion, err := library.InstanceVersion()
			if err != nil {
				return err
			}
			version := InstanceVersion(apiVersion)
			if required != nil && version.LT(*required) {
				return fmt.Errorf("the Vulkan loader provides instance version %s, at least %s is required", version, required)
			}

			names, err := library.InstanceExtensions()
			if err != nil {
				return err
			}
			return PrintExtensions(cmd.OutOrStdout(), version, names)
		},
	}
	cmd.Flags().StringSliceVar(&loaderPaths, "loader", nil, "Vulkan loader libraries to try, defaults to libvulkan.so.1")
	cmd.Flags().StringVar(&minVersion, "min-version", "", "Fail unless the loader provides at least this instance version, e.g. 1.1")
	return cmd
}

// InstanceVersion converts a packed Vulkan API version.
func InstanceVersion(apiVersion uint32) semver.Version {
	major, minor, patch := vk.APIVersion(apiVersion)
	return semver.Version{Major: uint64(major), Minor: uint64(minor), Patch: uint64(patch)}
}

// PrintExtensions writes the instance version and one extension per line,
// sorted, followed by whether debug messengers can be created.
func PrintExtensions(out io.Writer, version semver.Version, names []string) error {
	if _, err := fmt.Fprintf(out, "instance version: %s\n\n", version); err != nil {
		return err
	}

	sorted := append([]string{}, names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		if _, err := fmt.Fprintln(out, name); err != nil {
			return err
		}
	}

	supported := "no"
	if vk.InstanceExtensionsFromNames(names).ExtDebugUtils {
		supported = "yes"
	}
	_, err := fmt.Fprintf(out, "\ndebug messengers supported: %s\n", supported)
	return err
}
