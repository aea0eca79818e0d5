package ops

import (
	_ "github.com/fabricml/fabricml/deploy_ops/classify"
	_ "github.com/fabricml/fabricml/deploy_ops/compile"
	_ "github.com/fabricml/fabricml/deploy_ops/cut"
	_ "github.com/fabricml/fabricml/deploy_ops/quantize"
)