package commands

import (
	_ "github.com/keshon/psnap/internal/commands/help"
	_ "github.com/keshon/psnap/internal/commands/latest"
	_ "github.com/keshon/psnap/internal/commands/list"
	_ "github.com/keshon/psnap/internal/commands/prune"
	_ "github.com/keshon/psnap/internal/commands/snapshot"
	_ "github.com/keshon/psnap/internal/commands/unlock"
	_ "github.com/keshon/psnap/internal/commands/verify"
)

// import all commands to trigger init
