package common

import (
	"github.com/rug-cit-hpc/slurm-jobinfo3/status"
)

// MT: Constant after initialization
var Log status.Logger = status.Default()
