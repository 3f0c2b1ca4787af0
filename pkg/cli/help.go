/*
 * Copyright 2025 Carver Automation Corporation.
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
 */

package cli

import (
	"fmt"
	"io"
)

// ShowHelp prints usage.
func ShowHelp(w io.Writer) {
	_, _ = fmt.Fprint(w, `fleetcmd: dispatch and track remote actions on managed devices

Usage:
  fleetcmd [-config file] [-o table|json|yaml] <subcommand> [options]
  fleetcmd -version

Subcommands:
  actions                     list the action catalog
  devices [-refresh]          list targetable devices
  dispatch -action <type>     queue an action
      -targets a,b,c          device ids (omit for an org-wide broadcast)
      -params '{"k":"v"}'     JSON parameters for the action
      -watch                  follow the command until it resolves
  commands                    list recent commands, newest first
      -limit N                how many to fetch
      -status <status>        e.g. Executing, Completed, Failed
      -type <action>          e.g. CollectLogs
  detail <command-id>         show per-device status for a command
  watch <command-id>          poll a command until it resolves
  cancel <command-id>         request cancellation

Configuration:
  -config or FLEETCMD_CONFIG names a JSON or YAML file. CONFIG_SOURCE=env reads
  FLEETCMD_* variables (e.g. FLEETCMD_API_BASE_URL, FLEETCMD_ORG_ID) or a whole
  document from FLEETCMD_CONFIG_JSON. CONFIG_SOURCE=kv reads config/<file name>
  from the NATS KV bucket at FLEETCMD_NATS_URL.

Examples:
  fleetcmd dispatch -action CollectLogs -targets dev-1,dev-2 -watch
  fleetcmd dispatch -action TriggerScan
  fleetcmd -o json commands -status Executing
  fleetcmd detail 7f1c2a90
`)
}
