package mcp_test

import (
	"context"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/api/gateway"
	"github.com/Sakibyash/infinoz-bot1/api/mcp"
	"github.com/Sakibyash/infinoz-bot1/api/prompt"
	"github.com/Sakibyash/infinoz-bot1/pkg/logger"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
	testutils "github.com/Sakibyash/infinoz-bot1/pkg/utils/test"
)

var _ = Describe("MCP Server", func() {
	var (
		server *mcp.Server
		client *testutils.MockMemoryClient
		svc    *gateway.Service
	)

	BeforeEach(func() {
		client = testutils.NewMockMemoryClient()
		svc = &gateway.Service{Handle: memory.NewReadyHandle(client)}

		var err error
		server, err = mcp.NewServer(mcp.Config{
			Gateway: svc,
			Logger:  logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the gateway is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("gateway service is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Gateway: svc})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("allows an empty noop server", func() {
			s, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("tools", func() {
		var session *gomcp.ClientSession

		BeforeEach(func() {
			ctx := context.Background()
			serverTransport, clientTransport := gomcp.NewInMemoryTransports()

			_, err := server.MCPServer().Connect(ctx, serverTransport, nil)
			Expect(err).NotTo(HaveOccurred())

			c := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
			session, err = c.Connect(ctx, clientTransport, nil)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(session.Close)
		})

		It("lists both tools", func() {
			res, err := session.ListTools(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(res.Tools))
			for _, t := range res.Tools {
				names = append(names, t.Name)
			}
			Expect(names).To(ConsistOf("get_context", "add_memory"))
		})

		It("renders context through get_context", func() {
			client.SetMemories("Likes tea")

			res, err := session.CallTool(context.Background(), &gomcp.CallToolParams{
				Name:      "get_context",
				Arguments: map[string]any{"user_id": "alice", "message": "drink?"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			text := res.Content[0].(*gomcp.TextContent).Text
			Expect(text).To(ContainSubstring("- Likes tea"))
			Expect(client.Searches[0].Opts.UserID).To(Equal("alice"))
		})

		It("stores a turn through add_memory", func() {
			res, err := session.CallTool(context.Background(), &gomcp.CallToolParams{
				Name:      "add_memory",
				Arguments: map[string]any{"user_id": "alice", "user_message": "hi", "ai_response": "hello"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(client.Adds[0].Text).To(Equal("User: hi\nAI: hello"))
		})

		It("rejects arguments without a user id against the input schema", func() {
			_, err := session.CallTool(context.Background(), &gomcp.CallToolParams{
				Name:      "get_context",
				Arguments: map[string]any{"message": "drink?"},
			})
			Expect(err).To(MatchError(ContainSubstring("user_id")))
			Expect(client.Searches).To(BeEmpty())
		})

		It("reports an empty user id as a tool error", func() {
			res, err := session.CallTool(context.Background(), &gomcp.CallToolParams{
				Name:      "get_context",
				Arguments: map[string]any{"user_id": "", "message": "drink?"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(res.Content[0].(*gomcp.TextContent).Text).To(ContainSubstring(memory.ErrEmptyUserID.Error()))
			Expect(client.Searches).To(BeEmpty())
		})
	})

	Describe("without a memory client", func() {
		It("returns the not configured prompt", func() {
			offline := &gateway.Service{Handle: memory.NewHandle(func() (memory.Client, error) { return nil, nil })}
			s, err := mcp.NewServer(mcp.Config{Gateway: offline, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())

			ctx := context.Background()
			st, ct := gomcp.NewInMemoryTransports()
			_, err = s.MCPServer().Connect(ctx, st, nil)
			Expect(err).NotTo(HaveOccurred())
			session, err := gomcp.NewClient(&gomcp.Implementation{Name: "t", Version: "v0"}, nil).Connect(ctx, ct, nil)
			Expect(err).NotTo(HaveOccurred())
			defer session.Close()

			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "get_context",
				Arguments: map[string]any{"user_id": "alice", "message": "x"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Content[0].(*gomcp.TextContent).Text).To(ContainSubstring(prompt.NotConfigured))
		})
	})
})
