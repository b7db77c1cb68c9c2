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

package main

import (
	"os"

	"kubevirt.io/vkdebug/pkg/log"
	"kubevirt.io/vkdebug/pkg/vkdebug"
)

func main() {
	if err := vkdebug.NewVkdebugCommand().Execute(); err != nil {
		log.Log.Reason(err).Level(log.FATAL).Log("msg", "vkdebug failed")
		os.Exit(1)
	}
}
