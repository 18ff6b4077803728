package exportcmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatbox/cmd/chatbox/session"
	"github.com/papercomputeco/chatbox/cmd/chatbox/transfer"
	"github.com/papercomputeco/chatbox/pkg/chat"
	"github.com/papercomputeco/chatbox/pkg/storage/sqlite"
)

var _ = Describe("Export Command", func() {
	var (
		ctx    context.Context
		tmpDir string
		dbPath string
		stored []chat.Message
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv("HOME", tmpDir)
		dbPath = filepath.Join(tmpDir, "chat.sqlite")

		driver, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		store := chat.NewStore(driver, nil)
		store.Initialize(ctx)
		store.AppendMessage(chat.RoleUser, "2+2?")
		store.AppendMessage(chat.RoleAssistant, "4")
		stored = store.Messages()
		Expect(driver.Close()).To(Succeed())
	})

	run := func(args ...string) (string, error) {
		root := &cobra.Command{Use: "chatbox", SilenceUsage: true, SilenceErrors: true}
		session.AddFlags(root)
		root.AddCommand(NewExportCmd())

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(append(args, "--db", dbPath))
		err := root.ExecuteContext(ctx)
		return out.String(), err
	}

	It("writes a JSON envelope to stdout by default", func() {
		out, err := run("export")
		Expect(err).NotTo(HaveOccurred())

		messages, err := transfer.Decode([]byte(out), transfer.FormatJSON)
		Expect(err).NotTo(HaveOccurred())
		Expect(messages).To(HaveLen(4))
		Expect(messages[0].ID).To(Equal(stored[0].ID))
		Expect(messages[3].Content).To(Equal("4"))
	})

	It("picks YAML from the file extension", func() {
		path := filepath.Join(tmpDir, "chat.yaml")
		_, err := run("export", path)
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("checksum:"))

		messages, err := transfer.Decode(data, transfer.FormatYAML)
		Expect(err).NotTo(HaveOccurred())
		Expect(messages).To(HaveLen(4))
	})

	It("lets --format override the extension", func() {
		path := filepath.Join(tmpDir, "chat.txt")
		_, err := run("export", "--format", "yaml", path)
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		_, err = transfer.Decode(data, transfer.FormatYAML)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an unknown format", func() {
		_, err := run("export", "--format", "xml")
		Expect(err).To(HaveOccurred())
	})
})
