package root

import (
	directorycmd "github.com/zenGate-Global/palmyra-sharding/apps/cli/cmd/directory"
	tenantcmd "github.com/zenGate-Global/palmyra-sharding/apps/cli/cmd/tenant"
)

func init() {
	Root().AddCommand(directorycmd.Command())
	Root().AddCommand(tenantcmd.Command())
}
