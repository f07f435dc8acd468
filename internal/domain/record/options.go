package record

// SetOption настраивает, как Set сохраняет одно значение
type SetOption func(*setOptions)

type setOptions struct {
	encrypted  *bool
	expiryDays *float64
	compress   bool
}

// WithEncryption переопределяет классификацию чувствительности
func WithEncryption(encrypted bool) SetOption {
	return func(o *setOptions) {
		o.encrypted = &encrypted
	}
}

// WithExpiryDays задает срок жизни в днях. Ноль или меньше - бессрочно.
func WithExpiryDays(days float64) SetOption {
	return func(o *setOptions) {
		o.expiryDays = &days
	}
}

// WithCompression запрашивает сжатие. Нужна только при Config.ManualCompression,
// иначе большие значения сжимаются и без нее. Действует лишь на незашифрованные
// значения больше порога кодека.
func WithCompression() SetOption {
	return func(o *setOptions) {
		o.compress = true
	}
}

func applyOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Options параметры Set в виде для HTTP API и файлов загрузки
type Options struct {
	Encrypted  *bool    `json:"encrypted,omitempty" yaml:"encrypted,omitempty"`
	ExpiryDays *float64 `json:"expiryDays,omitempty" yaml:"expiryDays,omitempty"`
	Compress   bool     `json:"compress,omitempty" yaml:"compress,omitempty"`
}

// SetOptions превращает o в функциональные опции
func (o Options) SetOptions() []SetOption {
	var opts []SetOption
	if o.Encrypted != nil {
		opts = append(opts, WithEncryption(*o.Encrypted))
	}
	if o.ExpiryDays != nil {
		opts = append(opts, WithExpiryDays(*o.ExpiryDays))
	}
	if o.Compress {
		opts = append(opts, WithCompression())
	}
	return opts
}
