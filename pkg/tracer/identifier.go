package tracer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

const (
	identifierPairSep = "#"
	identifierSep     = "##"
)

// MakeIdentifierString 把 trigger 的标识属性规范化为字符串：
// 按属性名升序，每项 "name#value"，项之间以 "##" 连接。
// 空 map 返回空串，空串同样参与匹配。
func MakeIdentifierString(identifier map[string]any) string {
	if len(identifier) == 0 {
		return ""
	}

	names := make([]string, 0, len(identifier))
	for name := range identifier {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+identifierPairSep+identifierValue(identifier[name]))
	}
	return strings.Join(pairs, identifierSep)
}

func identifierValue(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		// maps, slices and other composites
		return fmt.Sprint(v)
	}
	return s
}
