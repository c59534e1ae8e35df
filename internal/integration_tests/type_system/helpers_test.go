package integration_tests

import "github.com/bytedance/sonic"

func quote(s string) string {
	raw, err := sonic.MarshalString(s)
	if err != nil {
		panic(err)
	}
	return raw
}
