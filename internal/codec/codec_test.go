package codec_test

import (
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/desgate/internal/codec"
	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/hook"
)

var _ = Describe("Codec", func() {
	var c *codec.Codec

	BeforeEach(func() {
		var err error
		c, err = codec.New(nil, codec.WithWorkDir("/work"))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("built-in hosts", func() {
		It("should know claude and opencode", func() {
			Expect(c.Hosts()).To(Equal([]string{"claude", "opencode"}))

			claude, err := c.Host(codec.HostClaude)
			Expect(err).NotTo(HaveOccurred())
			Expect(claude.GetProtocol()).To(Equal(config.ProtocolClaude))
			Expect(claude.GetContextSink()).To(Equal(config.SinkInject))

			opencode, err := c.Host(codec.HostOpenCode)
			Expect(err).NotTo(HaveOccurred())
			Expect(opencode.GetProtocol()).To(Equal(config.ProtocolExitCode))
			Expect(opencode.GetContextSink()).To(Equal(config.SinkLog))
		})

		It("should reject unknown hosts", func() {
			_, _, err := c.Decode("cursor", "PreToolUse", []byte(`{}`))
			Expect(errors.Is(err, codec.ErrUnknownHost)).To(BeTrue())
		})
	})

	Describe("Claude Code payloads", func() {
		It("should decode a governed PreToolUse", func() {
			cmd, req, err := c.Decode("claude", "PreToolUse", []byte(`{
				"session_id": "s-1",
				"transcript_path": "/tmp/t.jsonl",
				"cwd": "/repo",
				"hook_event_name": "PreToolUse",
				"tool_name": "Task",
				"tool_use_id": "toolu_1",
				"tool_input": {"prompt": "do it", "subagent_type": "software-crafter"}
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd).To(Equal(hook.CommandPreToolUse))
			Expect(req.ToolName()).To(Equal("Task"))
			Expect(req.SessionID()).To(Equal("s-1"))
			Expect(req.ToolInput()).To(HaveKeyWithValue("prompt", "do it"))
			Expect(req).To(HaveKeyWithValue("tool_use_id", "toolu_1"))
			Expect(req).To(HaveKeyWithValue(hook.KeyHost, "claude"))
		})

		It("should skip tools that are not governed", func() {
			_, _, err := c.Decode("claude", "PreToolUse", []byte(`{"tool_name":"Bash","tool_input":{}}`))
			Expect(errors.Is(err, codec.ErrNotApplicable)).To(BeTrue())
		})

		It("should skip events without a command", func() {
			_, _, err := c.Decode("claude", "Notification", []byte(`{}`))
			Expect(errors.Is(err, codec.ErrNotApplicable)).To(BeTrue())
		})

		It("should prefer the agent transcript on SubagentStop", func() {
			cmd, req, err := c.Decode("claude", "SubagentStop", []byte(`{
				"session_id": "s-1",
				"transcript_path": "/tmp/main.jsonl",
				"agent_transcript_path": "/tmp/agent.jsonl",
				"cwd": "/repo",
				"stop_hook_active": true
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd).To(Equal(hook.CommandStop))
			Expect(req.String(hook.KeyTranscriptPath)).To(Equal("/tmp/agent.jsonl"))
			Expect(req.Bool(hook.KeyStopHookActive)).To(BeTrue())
			Expect(req).NotTo(HaveKey("agent_transcript_path"))
		})
	})

	Describe("OpenCode payloads", func() {
		It("should rename camelCase keys", func() {
			cmd, req, err := c.Decode("opencode", "tool.execute.before", []byte(`{
				"tool": "task",
				"sessionID": "ses_9",
				"callID": "call_1",
				"args": {"prompt": "<!-- DES-STEP-ID: 01-02 -->"}
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd).To(Equal(hook.CommandPreToolUse))
			Expect(req.ToolName()).To(Equal("task"))
			Expect(req.SessionID()).To(Equal("ses_9"))
			Expect(req.ToolInput()).To(HaveKey("prompt"))
			Expect(req).To(HaveKeyWithValue("callID", "call_1"))
			Expect(req).NotTo(HaveKey("tool"))
			Expect(req).NotTo(HaveKey("args"))
			Expect(req).NotTo(HaveKey("sessionID"))
		})

		It("should fall back through the alias list", func() {
			_, req, err := c.Decode("opencode", "session.idle", []byte(`{
				"session_id": "ses_9",
				"directory": "/proj"
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.SessionID()).To(Equal("ses_9"))
			Expect(req.String(hook.KeyCWD)).To(Equal("/proj"))
		})

		It("should fill required stop fields", func() {
			_, req, err := c.Decode("opencode", "session.idle", []byte(`{"sessionID":"ses_9"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req).To(HaveKeyWithValue(hook.KeyStopHookActive, false))
			Expect(req).To(HaveKeyWithValue(hook.KeyTranscriptPath, ""))
			Expect(req.String(hook.KeyCWD)).To(Equal("/work"))
		})

		It("should map tool output on tool.execute.after", func() {
			cmd, req, err := c.Decode("opencode", "tool.execute.after", []byte(`{
				"tool": "task", "sessionID": "s", "args": {}, "output": "done"
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd).To(Equal(hook.CommandPostToolUse))
			Expect(req).To(HaveKeyWithValue(hook.KeyToolResponse, "done"))
		})
	})

	Describe("malformed payloads", func() {
		It("should report empty input", func() {
			cmd, _, err := c.Decode("claude", "Stop", nil)
			Expect(cmd).To(Equal(hook.CommandStop))
			Expect(errors.Is(err, codec.ErrEmptyInput)).To(BeTrue())
		})

		It("should keep the decoder error in the message", func() {
			_, _, err := c.Decode("claude", "PreToolUse", []byte(`{"tool_name":`))
			Expect(errors.Is(err, codec.ErrInvalidJSON)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("unexpected end of JSON input"))
		})

		DescribeTable("should report invalid JSON with the resolved command",
			func(payload string) {
				cmd, _, err := c.Decode("claude", "PreToolUse", []byte(payload))
				Expect(cmd).To(Equal(hook.CommandPreToolUse))
				Expect(errors.Is(err, codec.ErrInvalidJSON)).To(BeTrue())
			},
			Entry("truncated", `{"tool_name":`),
			Entry("array", `[]`),
			Entry("null", `null`),
			Entry("string", `"x"`),
		)
	})

	Describe("host overrides", func() {
		It("should merge user tables over built-ins", func() {
			custom, err := codec.New(map[string]*config.HostConfig{
				"opencode": {
					GovernedTools: []string{"sub*"},
					Events:        map[string]string{"session.compacted": "stop"},
				},
				"cursor": {
					Protocol: config.ProtocolExitCode,
					Events:   map[string]string{"beforeTool": "pre-tool-use"},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(custom.Hosts()).To(ContainElement("cursor"))

			cmd, _, err := custom.Decode("opencode", "session.compacted", []byte(`{"sessionID":"s"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd).To(Equal(hook.CommandStop))

			_, _, err = custom.Decode("opencode", "tool.execute.before", []byte(`{"tool":"task"}`))
			Expect(errors.Is(err, codec.ErrNotApplicable)).To(BeTrue())

			_, req, err := custom.Decode("opencode", "tool.execute.before", []byte(`{"tool":"subtask"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.ToolInput()).To(BeEmpty())

			_, req, err = custom.Decode("cursor", "beforeTool", []byte(`{"tool_name":"Task"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.ToolName()).To(Equal("Task"))
		})

		It("should resolve dotted field paths into nested objects", func() {
			custom, err := codec.New(map[string]*config.HostConfig{
				"nested": {
					Events: map[string]string{"before": "pre-tool-use"},
					Fields: map[string][]string{
						"tool_name":  {"call.name"},
						"session_id": {"meta.session.id"},
					},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			_, req, err := custom.Decode("nested", "before",
				[]byte(`{"call":{"name":"Task"},"meta":{"session":{"id":"s-9"}}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.ToolName()).To(Equal("Task"))
			Expect(req.SessionID()).To(Equal("s-9"))
			Expect(req).To(HaveKey("call"))
		})

		It("should apply default governed tools", func() {
			custom, err := codec.New(nil, codec.WithGovernedTools([]string{"Agent"}))
			Expect(err).NotTo(HaveOccurred())

			_, _, err = custom.Decode("claude", "PreToolUse", []byte(`{"tool_name":"Task"}`))
			Expect(errors.Is(err, codec.ErrNotApplicable)).To(BeTrue())

			_, _, err = custom.Decode("claude", "PreToolUse", []byte(`{"tool_name":"Agent"}`))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})

var _ = Describe("ParseMarkers", func() {
	It("should extract project and step markers", func() {
		m := codec.ParseMarkers(`
<!-- DES-VALIDATION: required -->
<!-- DES-PROJECT-ID: auth-upgrade -->
<!-- DES-STEP-ID: 01-02 -->
Implement the login flow.`)

		Expect(m.ProjectID).To(Equal("auth-upgrade"))
		Expect(m.StepID).To(Equal("01-02"))
		Expect(m.IsRequired()).To(BeTrue())
		Expect(m.StepKey()).To(Equal("auth-upgrade/01-02"))
	})

	It("should return an empty key without a step marker", func() {
		m := codec.ParseMarkers("<!-- DES-PROJECT-ID: p -->")
		Expect(m.StepKey()).To(BeEmpty())
		Expect(m.IsRequired()).To(BeFalse())
	})

	It("should use the bare step id without a project", func() {
		Expect(codec.ParseMarkers("<!--DES-STEP-ID:03-01-->").StepKey()).To(Equal("03-01"))
	})
})
