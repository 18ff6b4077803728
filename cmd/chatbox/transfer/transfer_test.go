package transfer_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatbox/cmd/chatbox/transfer"
	"github.com/papercomputeco/chatbox/pkg/chat"
)

var _ = Describe("Transfer", func() {
	var log []chat.Message

	BeforeEach(func() {
		t0 := time.Date(2025, 6, 1, 14, 41, 0, 123456789, time.UTC)
		log = []chat.Message{
			{ID: "a", Role: chat.RoleSystem, Content: "You are a helpful assistant.", CreatedAt: t0},
			{ID: "b", Role: chat.RoleAssistant, Content: "Hi! Ask me anything 😊\n\nYou can use **bold**.", CreatedAt: t0},
			{ID: "c", Role: chat.RoleUser, Content: "  spaced: yes\n", CreatedAt: t0.Add(time.Second)},
		}
	})

	DescribeTable("round trips a log",
		func(format transfer.Format) {
			data, err := transfer.Encode(log, format)
			Expect(err).NotTo(HaveOccurred())

			decoded, err := transfer.Decode(data, format)
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(HaveLen(len(log)))
			for i := range log {
				Expect(decoded[i].ID).To(Equal(log[i].ID))
				Expect(decoded[i].Role).To(Equal(log[i].Role))
				Expect(decoded[i].Content).To(Equal(log[i].Content))
				Expect(decoded[i].CreatedAt.Equal(log[i].CreatedAt)).To(BeTrue())
			}
		},
		Entry("as JSON", transfer.FormatJSON),
		Entry("as YAML", transfer.FormatYAML),
	)

	It("rejects an edited YAML export", func() {
		data, err := transfer.Encode(log, transfer.FormatYAML)
		Expect(err).NotTo(HaveOccurred())

		Expect(string(data)).To(ContainSubstring("You are a helpful assistant."))
		edited := []byte(strings.Replace(string(data), "You are a helpful assistant.", "You are a pirate.", 1))

		_, err = transfer.Decode(edited, transfer.FormatYAML)
		Expect(err).To(MatchError(chat.ErrMalformedLog))
	})

	It("rejects garbage", func() {
		_, err := transfer.Decode([]byte("{"), transfer.FormatJSON)
		Expect(err).To(MatchError(chat.ErrMalformedLog))

		_, err = transfer.Decode([]byte("version: [1"), transfer.FormatYAML)
		Expect(err).To(MatchError(chat.ErrMalformedLog))
	})

	DescribeTable("FormatFromPath",
		func(path string, want transfer.Format) {
			Expect(transfer.FormatFromPath(path)).To(Equal(want))
		},
		Entry("json", "chat.json", transfer.FormatJSON),
		Entry("yaml", "chat.yaml", transfer.FormatYAML),
		Entry("yml upper case", "CHAT.YML", transfer.FormatYAML),
		Entry("no extension", "chat", transfer.FormatJSON),
	)

	It("parses format names", func() {
		f, err := transfer.ParseFormat("YML")
		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(Equal(transfer.FormatYAML))

		_, err = transfer.ParseFormat("xml")
		Expect(err).To(HaveOccurred())
	})
})
