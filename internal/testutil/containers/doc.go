//go:build integration

// Package containers starts throwaway MySQL and Mosquitto instances with
// testcontainers for integration tests.
//
// Tests in this package family only build with the integration tag:
//
//	go test -tags=integration ./...
//
// A typical package shares one container through TestMain:
//
//	func TestMain(m *testing.M) {
//		ctx := context.Background()
//		c, err := containers.NewMySQLContainer(ctx, nil)
//		if err != nil {
//			panic(err)
//		}
//		code := m.Run()
//		_ = c.Terminate(ctx)
//		os.Exit(code)
//	}
package containers
