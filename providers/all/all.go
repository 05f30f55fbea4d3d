// Package all registers every bundled provider. Import it for side effects:
//
//	import _ "github.com/jonwraymond/toolgate/providers/all"
package all

import (
	_ "github.com/jonwraymond/toolgate/providers/hr"
	_ "github.com/jonwraymond/toolgate/providers/jira"
)
