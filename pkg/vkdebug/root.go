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

package vkdebug

import (
	"github.com/spf13/cobra"

	"kubevirt.io/vkdebug/pkg/log"
	"kubevirt.io/vkdebug/pkg/vkdebug/extensions"
	"kubevirt.io/vkdebug/pkg/vkdebug/listen"
)

func NewVkdebugCommand() *cobra.Command {
	verbosity := 2
	logLevel := "info"
	root := &cobra.Command{
		Use:           "vkdebug",
		Short:         "vkdebug receives diagnostics from Vulkan validation layers and drivers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log.InitializeLogging("vkdebug")
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			if err := log.Log.SetLogLevel(level); err != nil {
				return err
			}
			return log.Log.SetVerbosityLevel(verbosity)
		},
	}
	root.PersistentFlags().IntVarP(&verbosity, "v", "v", verbosity, "Log verbosity")
	root.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Level filter for vkdebug's own log lines: info, warning, error, critical or fatal")

	root.AddCommand(
		listen.NewListenCommand(&verbosity),
		extensions.NewExtensionsCommand(),
	)
	return root
}
