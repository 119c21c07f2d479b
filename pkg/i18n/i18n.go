package i18n

import "strings"

var translations = map[string]string{
	"invalid request":                  "درخواست نامعتبر است",
	"failed to generate token":         "خطا در تولید توکن",
	"failed to get user":               "خطا در دریافت کاربر",
	"missing authorization token":      "توکن احراز هویت ارسال نشده است",
	"invalid token":                    "توکن نامعتبر است",
	"failed to validate user":          "خطا در اعتبارسنجی کاربر",
	"user not found":                   "کاربر یافت نشد",
	"unauthorized":                     "دسترسی غیرمجاز",
	"admin access required":            "دسترسی مدیر لازم است",
	"storage unavailable":              "حافظه در دسترس نیست",
	"conversation not found":           "گفتگو یافت نشد",
	"failed to fetch messages":         "خطا در دریافت پیام ها",
	"failed to fetch conversations":    "خطا در دریافت گفتگوها",
	"failed to send message":           "خطا در ارسال پیام",
	"message not found":                "پیام یافت نشد",
	"can only edit own messages":       "فقط پیام های خودتان قابل ویرایش است",
	"can only delete own messages":     "فقط پیام های خودتان قابل حذف است",
	"failed to delete message":         "خطا در حذف پیام",
	"username required":                "نام کاربری الزامی است",
	"failed to fetch users":            "خطا در دریافت کاربران",
	"failed to create conversation":    "خطا در ایجاد گفتگو",
	"invalid conversation id":          "شناسه گفتگو نامعتبر است",
	"not a participant":                "شما عضو این گفتگو نیستید",
	"failed to update profile":         "خطا در به روزرسانی پروفایل",
	"websocket upgrade failed":         "خطا در برقراری اتصال وب سوکت",
	"rate limiter error":               "خطا در محدودسازی درخواست ها",
	"rate limit exceeded":              "تعداد درخواست ها بیش از حد مجاز است",
	"internal server error":            "خطای داخلی سرور",
	"not found":                        "یافت نشد",
	"account limit reached":            "حداکثر سه حساب مجاز است؛ ابتدا یکی را حذف کنید",
	"account not signed in":            "این حساب وارد نشده است",
	"no active stream":                 "پخش زنده ای فعال نیست",
	"stream already active":            "پخش زنده دیگری در جریان است",
	"invalid call transition":          "تغییر وضعیت تماس مجاز نیست",
	"call not found":                   "تماس یافت نشد",
	"story not found":                  "استوری یافت نشد",
	"insufficient balance":             "موجودی کافی نیست",
	"user is banned":                   "این حساب مسدود شده است",
	"failed to start stream":           "خطا در شروع پخش زنده",
	"failed to update stream":          "خطا در به روزرسانی پخش زنده",
	"failed to fetch stories":          "خطا در دریافت استوری ها",
	"failed to save story":             "خطا در ذخیره استوری",
	"failed to save ad":                "خطا در ذخیره تبلیغ",
	"failed to fetch calls":            "خطا در دریافت تماس ها",
	"invalid subscription":             "اشتراک اعلان نامعتبر است",
	"empty message":                    "پیام خالی است",
	"not your message":                 "این پیام متعلق به شما نیست",
	"cannot call yourself":             "نمی توانید با خودتان تماس بگیرید",
	"failed to start call":             "خطا در شروع تماس",
	"failed to fetch stream":           "خطا در دریافت پخش زنده",
	"failed to stop stream":            "خطا در پایان پخش زنده",
	"failed to fetch ads":              "خطا در دریافت تبلیغات",
	"failed to save subscription":      "خطا در ذخیره اشتراک اعلان",

	"push notifications not configured": "اعلان ها روی این سرور فعال نیستند",

	"username must be between 3 and 32 characters":                "نام کاربری باید بین ۳ تا ۳۲ کاراکتر باشد",
	"username can only contain letters, numbers, and underscores": "نام کاربری فقط می تواند شامل حروف، اعداد و زیرخط باشد",
	"password must be at least 4 characters":                      "رمز عبور باید حداقل ۴ کاراکتر باشد",
	"username already exists":                                     "این نام کاربری قبلا ثبت شده است",
	"invalid username or password":                                "نام کاربری یا رمز عبور اشتباه است",
}

var prefixTranslations = map[string]string{
	"failed to hash password:":  "خطا در پردازش رمز عبور",
	"failed to register user:":  "خطا در ثبت نام کاربر",
	"failed to query user:":     "خطا در دریافت اطلاعات کاربر",
	"failed to generate token:": "خطا در تولید توکن",
	"failed to sign token:":     "خطا در امضای توکن",
	"failed to parse token:":    "توکن نامعتبر است",
	"storage unavailable:":      "حافظه در دسترس نیست",
}

func Translate(message string) string {
	if translated, ok := translations[message]; ok {
		return translated
	}
	for prefix, translated := range prefixTranslations {
		if strings.HasPrefix(message, prefix) {
			return translated
		}
	}
	return message
}
