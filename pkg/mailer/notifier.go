package mailer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	tpl "github.com/oksasatya/authshop/pkg/mailer/templates"
)

// Publisher puts a JSON job on the email queue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueNotifier enqueues templated email jobs for the email worker.
type QueueNotifier struct {
	Pub   Publisher
	Brand tpl.Brand
}

func NewQueueNotifier(pub Publisher, brand tpl.Brand) *QueueNotifier {
	return &QueueNotifier{Pub: pub, Brand: brand}
}

func (n *QueueNotifier) SendOTP(ctx context.Context, to, name, code string, expiresAt time.Time) error {
	job := EmailJob{To: to, Template: tpl.VerifyOTP, Data: tpl.NewVerifyOTPData(n.Brand, name, to, code, expiresAt)}
	return n.Pub.PublishJSON(ctx, job)
}

func (n *QueueNotifier) SendPasswordReset(ctx context.Context, to, name, link string, expiresAt time.Time) error {
	job := EmailJob{To: to, Template: tpl.PasswordReset, Data: tpl.NewPasswordResetData(n.Brand, name, to, link, expiresAt)}
	return n.Pub.PublishJSON(ctx, job)
}

// LogNotifier writes codes and links to the log instead of sending mail.
// Used when MAIL_SEND_ENABLED=false, mirroring a console-only dev setup.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n *LogNotifier) SendOTP(_ context.Context, to, _, code string, expiresAt time.Time) error {
	n.Logger.WithFields(logrus.Fields{"to": to, "otp": code, "expires_at": expiresAt}).Info("email disabled; verification code")
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, to, _, link string, expiresAt time.Time) error {
	n.Logger.WithFields(logrus.Fields{"to": to, "link": link, "expires_at": expiresAt}).Info("email disabled; password reset link")
	return nil
}
