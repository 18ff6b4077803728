package historycmder

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatbox/cmd/chatbox/session"
	"github.com/papercomputeco/chatbox/pkg/chat"
	"github.com/papercomputeco/chatbox/pkg/storage/sqlite"
)

var _ = Describe("History Command", func() {
	var (
		ctx    context.Context
		dbPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		home := GinkgoT().TempDir()
		GinkgoT().Setenv("HOME", home)
		dbPath = filepath.Join(home, "chat.sqlite")
	})

	newRoot := func(args ...string) *cobra.Command {
		root := &cobra.Command{Use: "chatbox", SilenceUsage: true, SilenceErrors: true}
		session.AddFlags(root)
		root.AddCommand(NewHistoryCmd())
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(append(args, "--db", dbPath))
		return root
	}

	// seed writes a conversation through a separate driver, the way another
	// chatbox process would.
	seed := func(fn func(store *chat.Store)) {
		driver, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()
		store := chat.NewStore(driver, nil)
		store.Initialize(ctx)
		fn(store)
	}

	It("prints the visible messages without the system prompt", func() {
		seed(func(store *chat.Store) {
			store.AppendMessage(chat.RoleUser, "2+2?")
			store.AppendMessage(chat.RoleAssistant, "**4**")
		})

		var out bytes.Buffer
		root := newRoot("history")
		root.SetOut(&out)
		Expect(root.ExecuteContext(ctx)).To(Succeed())

		text := out.String()
		Expect(text).NotTo(ContainSubstring(chat.DefaultSystemPrompt))
		Expect(text).To(ContainSubstring("AI "))
		Expect(text).To(ContainSubstring("You "))
		Expect(text).To(ContainSubstring("2+2?"))
		Expect(text).To(ContainSubstring("**4**"))
		Expect(strings.Index(text, "2+2?")).To(BeNumerically("<", strings.Index(text, "**4**")))
	})

	It("prints one truncated line per message", func() {
		seed(func(store *chat.Store) {
			store.AppendMessage(chat.RoleUser, strings.Repeat("word ", 100))
		})

		var out bytes.Buffer
		root := newRoot("history", "--oneline")
		root.SetOut(&out)
		Expect(root.ExecuteContext(ctx)).To(Succeed())

		lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).NotTo(ContainSubstring("\n"))
		Expect(lines[1]).To(HaveSuffix("…"))
		Expect(len([]rune(lines[1]))).To(BeNumerically("<=", defaultWidth))
	})

	It("refuses to follow an in-memory database", func() {
		root := &cobra.Command{Use: "chatbox", SilenceUsage: true, SilenceErrors: true}
		session.AddFlags(root)
		root.AddCommand(NewHistoryCmd())
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"history", "--follow", "--db", ":memory:"})

		Expect(root.ExecuteContext(ctx)).To(MatchError(ContainSubstring("in-memory")))
	})

	It("follows messages written by another process", func() {
		seed(func(store *chat.Store) {
			store.AppendMessage(chat.RoleUser, "first question")
		})

		out := gbytes.NewBuffer()
		root := newRoot("history", "--follow")
		root.SetOut(out)

		followCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- root.ExecuteContext(followCtx)
		}()
		defer func() {
			cancel()
			Eventually(done, 5*time.Second).Should(Receive(BeNil()))
		}()

		Eventually(out).Should(gbytes.Say("first question"))

		// give the watcher time to register before writing
		time.Sleep(100 * time.Millisecond)
		seed(func(store *chat.Store) {
			store.AppendMessage(chat.RoleAssistant, "followed answer")
		})
		Eventually(out, 5*time.Second).Should(gbytes.Say("followed answer"))

		seed(func(store *chat.Store) {
			store.Reset()
		})
		Eventually(out, 5*time.Second).Should(gbytes.Say("conversation cleared"))
		Eventually(out, 5*time.Second).Should(gbytes.Say("Hi! Ask me anything"))
	})
})
