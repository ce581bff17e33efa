package crypto

type logger interface {
	Logf(format string, args ...interface{})
	Cleanup(func())
}

// testKDFParams are the parameters for the KDF to be used during testing.
var testKDFParams = Params{
	Time:    1,
	Memory:  64,
	Threads: 1,
}

// TestUseLowSecurityKDFParameters configures low-security KDF parameters for
// the duration of the test.
func TestUseLowSecurityKDFParameters(t logger) {
	t.Logf("using low-security KDF parameters for test")
	old := KDFParams
	KDFParams = testKDFParams
	t.Cleanup(func() {
		KDFParams = old
	})
}
