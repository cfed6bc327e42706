package report

import "fmt"

var zhDigits = []string{"零", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

// ToZhNumber spells 0..99 in Chinese numerals (10 is 十, 21 is 二十一).
func ToZhNumber(value int) (string, error) {
	if value < 0 || value > 99 {
		return "", fmt.Errorf("unsupported number: %d", value)
	}
	if value < 10 {
		return zhDigits[value], nil
	}

	tens, ones := value/10, value%10

	prefix := "十"
	if tens > 1 {
		prefix = zhDigits[tens] + "十"
	}
	if ones == 0 {
		return prefix, nil
	}

	return prefix + zhDigits[ones], nil
}

func WeekBadge(week int) string {
	return fmt.Sprintf("W%02d", week)
}

func WeekLabel(week int) string {
	zh, err := ToZhNumber(week)
	if err != nil {
		return fmt.Sprintf("第%d周", week)
	}
	return "第" + zh + "周"
}
