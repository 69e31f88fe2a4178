// Package captcha реализует внешнего коллаборатора для решения
// графических капч.
//
// HTTPSolver работает с HTTP-сервисом распознавания: отправляет
// base64-изображение, затем опрашивает результат. После исчерпания
// собственного лимита попыток возвращает ErrSolverExhausted —
// runner обязан трактовать эту ошибку как фатальную для всей
// последовательности задач.
package captcha
